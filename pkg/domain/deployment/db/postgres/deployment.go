package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"

	kpool "github.com/poddle/poddle/pkg/conn/db/postgres/pool"
	"github.com/poddle/poddle/pkg/domain"
	depdb "github.com/poddle/poddle/pkg/domain/deployment/db"
	xe "github.com/poddle/poddle/pkg/errors"
)

type pgDeployment struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) depdb.Interface {
	return &pgDeployment{pool: pool}
}

func (d *pgDeployment) Create(ctx context.Context, depl domain.Deployment) error {
	env, err := json.Marshal(depl.Env)
	if err != nil {
		return xe.Wrap(err)
	}
	labels, err := json.Marshal(depl.Labels)
	if err != nil {
		return xe.Wrap(err)
	}

	_, err = d.pool.Exec(
		ctx,
		`
		insert into "deployment" (
			"id", "user_id", "project_id", "name",
			"image", "image_pull_secret", "port",
			"desired_replicas", "ready_replicas", "available_replicas",
			"cpu_request", "cpu_limit", "memory_request", "memory_limit",
			"env", "secret_keys", "labels",
			"subdomain", "domain",
			"status", "status_observed_at", "created_at", "updated_at"
		) values (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, 0, 0,
			$9, $10, $11, $12,
			$13, $14, $15,
			$16, $17,
			$18, $19, now(), now()
		)
		`,
		depl.Id, depl.UserId, depl.ProjectId, depl.Name,
		depl.Image, depl.ImagePullSecret, depl.Port,
		depl.DesiredReplicas,
		depl.Resources.CpuRequestMillicores, depl.Resources.CpuLimitMillicores,
		depl.Resources.MemoryRequestMebibytes, depl.Resources.MemoryLimitMebibytes,
		env, depl.SecretKeys, labels,
		depl.Subdomain, depl.Domain,
		depl.Status, depl.StatusObservedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.NewInvalidCausedBy("deployment already exists", err)
		}
		return xe.Wrap(err)
	}
	return nil
}

const deploymentColumns = `
	"id", "user_id", "project_id", "name",
	"image", "image_pull_secret", "port",
	"desired_replicas", "ready_replicas", "available_replicas",
	"cpu_request", "cpu_limit", "memory_request", "memory_limit",
	"env", "secret_keys", "labels",
	"subdomain", "domain",
	"status", "status_observed_at", "created_at", "updated_at"
`

func scanDeployment(row pgx.Row) (domain.Deployment, error) {
	depl := domain.Deployment{}
	var env, labels []byte
	err := row.Scan(
		&depl.Id, &depl.UserId, &depl.ProjectId, &depl.Name,
		&depl.Image, &depl.ImagePullSecret, &depl.Port,
		&depl.DesiredReplicas, &depl.ReadyReplicas, &depl.AvailableReplicas,
		&depl.Resources.CpuRequestMillicores, &depl.Resources.CpuLimitMillicores,
		&depl.Resources.MemoryRequestMebibytes, &depl.Resources.MemoryLimitMebibytes,
		&env, &depl.SecretKeys, &labels,
		&depl.Subdomain, &depl.Domain,
		&depl.Status, &depl.StatusObservedAt, &depl.CreatedAt, &depl.UpdatedAt,
	)
	if err != nil {
		return domain.Deployment{}, err
	}
	if len(env) != 0 {
		if err := json.Unmarshal(env, &depl.Env); err != nil {
			return domain.Deployment{}, err
		}
	}
	if len(labels) != 0 {
		if err := json.Unmarshal(labels, &depl.Labels); err != nil {
			return domain.Deployment{}, err
		}
	}
	return depl, nil
}

func (d *pgDeployment) Get(ctx context.Context, id string) (domain.Deployment, error) {
	row := d.pool.QueryRow(
		ctx,
		`select `+deploymentColumns+` from "deployment" where "id" = $1`,
		id,
	)
	depl, err := scanDeployment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Deployment{}, domain.NewDeploymentMissing(id)
	}
	if err != nil {
		return domain.Deployment{}, xe.Wrap(err)
	}
	return depl, nil
}

func (d *pgDeployment) UpdateSpec(ctx context.Context, depl domain.Deployment) error {
	env, err := json.Marshal(depl.Env)
	if err != nil {
		return xe.Wrap(err)
	}
	labels, err := json.Marshal(depl.Labels)
	if err != nil {
		return xe.Wrap(err)
	}

	tag, err := d.pool.Exec(
		ctx,
		`
		update "deployment" set
			"image" = $2, "image_pull_secret" = $3, "port" = $4,
			"cpu_request" = $5, "cpu_limit" = $6,
			"memory_request" = $7, "memory_limit" = $8,
			"env" = $9, "secret_keys" = $10, "labels" = $11,
			"domain" = $12,
			"updated_at" = now()
		where "id" = $1
		`,
		depl.Id,
		depl.Image, depl.ImagePullSecret, depl.Port,
		depl.Resources.CpuRequestMillicores, depl.Resources.CpuLimitMillicores,
		depl.Resources.MemoryRequestMebibytes, depl.Resources.MemoryLimitMebibytes,
		env, depl.SecretKeys, labels,
		depl.Domain,
	)
	if err != nil {
		return xe.Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewDeploymentMissing(depl.Id)
	}
	return nil
}

func (d *pgDeployment) Delete(ctx context.Context, id string) error {
	_, err := d.pool.Exec(ctx, `delete from "deployment" where "id" = $1`, id)
	if err != nil {
		return xe.Wrap(err)
	}
	return nil
}

func (d *pgDeployment) SetDesiredReplicas(ctx context.Context, id string, replicas int32) error {
	tag, err := d.pool.Exec(
		ctx,
		`update "deployment" set "desired_replicas" = $2, "updated_at" = now() where "id" = $1`,
		id, replicas,
	)
	if err != nil {
		return xe.Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewDeploymentMissing(id)
	}
	return nil
}

func (d *pgDeployment) Suspend(ctx context.Context, id string) error {
	tag, err := d.pool.Exec(
		ctx,
		`
		update "deployment" set
			"status" = $2, "status_observed_at" = now(), "updated_at" = now()
		where "id" = $1
		`,
		id, domain.StatusSuspended,
	)
	if err != nil {
		return xe.Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewDeploymentMissing(id)
	}
	return nil
}

func (d *pgDeployment) Resume(ctx context.Context, id string) (int32, error) {
	// desired_replicas survived suspension; restore it, but never less
	// than one replica.
	row := d.pool.QueryRow(
		ctx,
		`
		update "deployment" set
			"desired_replicas" = greatest("desired_replicas", 1),
			"status" = $2,
			"status_observed_at" = now(),
			"updated_at" = now()
		where "id" = $1
		returning "desired_replicas"
		`,
		id, domain.StatusStarting,
	)

	var replicas int32
	if err := row.Scan(&replicas); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.NewDeploymentMissing(id)
		}
		return 0, xe.Wrap(err)
	}
	return replicas, nil
}

func (d *pgDeployment) RecordObservation(
	ctx context.Context,
	id string,
	obs domain.ReplicaObservation,
	status domain.DeploymentStatus,
) (bool, error) {
	row := d.pool.QueryRow(
		ctx,
		`
		with "prev" as (
			select "id", "status" from "deployment" where "id" = $1 for update
		)
		update "deployment" d set
			"status" = $2,
			"status_observed_at" = $3,
			"ready_replicas" = $4,
			"available_replicas" = $5,
			"updated_at" = now()
		from "prev"
		where d."id" = "prev"."id"
			and d."status_observed_at" < $3
			and d."status" <> $6
		returning "prev"."status" <> d."status"
		`,
		id, status, obs.FetchedAt, obs.Ready, obs.Available, domain.StatusSuspended,
	)

	changed := false
	if err := row.Scan(&changed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// stale observation, missing row, or pinned suspension.
			return false, nil
		}
		return false, xe.Wrap(err)
	}
	return changed, nil
}

func (d *pgDeployment) ListActive(ctx context.Context, cursorId string, limit int) ([]domain.Deployment, error) {
	rows, err := d.pool.Query(
		ctx,
		`
		select `+deploymentColumns+` from "deployment"
		where "status" <> $1 and "id" > $2
		order by "id"
		limit $3
		`,
		domain.StatusSuspended, cursorId, limit,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	deployments := []domain.Deployment{}
	for rows.Next() {
		depl, err := scanDeployment(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		deployments = append(deployments, depl)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return deployments, nil
}
