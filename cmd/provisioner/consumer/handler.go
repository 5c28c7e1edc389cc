// Package consumer drains the command queue and drives the deployment
// lifecycle: parse, validate, persist, provision, announce.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/poddle/poddle/pkg/domain"
	depdb "github.com/poddle/poddle/pkg/domain/deployment/db"
	"github.com/poddle/poddle/pkg/domain/deployment/k8s"
	"github.com/poddle/poddle/pkg/event"
	"github.com/poddle/poddle/pkg/utils/retry"
)

// Outcome tells the dispatcher what to do with the delivery.
type Outcome int

const (
	// Ack removes the message from the queue, whether the command
	// succeeded or failed for good. Failures are reported over pub/sub,
	// not by requeueing.
	Ack Outcome = iota

	// Requeue puts the message back for another consumer. Used only when
	// handling was cut short by shutdown.
	Requeue
)

// CommandHandler executes one parsed command envelope.
type CommandHandler interface {
	Handle(ctx context.Context, env domain.CommandEnvelope) Outcome
}

const transientAttempts = 3

type Handler struct {
	logger      *log.Logger
	db          depdb.Interface
	provisioner k8s.Interface
	cache       event.Cache
	publisher   event.Publisher

	// backoff feeds the in-process retry of transient failures.
	backoff func() retry.Backoff
}

type HandlerOption func(*Handler)

// WithBackoff replaces the retry backoff between transient attempts.
func WithBackoff(backoff func() retry.Backoff) HandlerOption {
	return func(h *Handler) {
		h.backoff = backoff
	}
}

func NewHandler(
	logger *log.Logger,
	db depdb.Interface,
	provisioner k8s.Interface,
	cache event.Cache,
	publisher event.Publisher,
	options ...HandlerOption,
) *Handler {
	h := &Handler{
		logger:      logger,
		db:          db,
		provisioner: provisioner,
		cache:       cache,
		publisher:   publisher,
		backoff: func() retry.Backoff {
			return retry.ExponentialBackoff(500*time.Millisecond, 2)
		},
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

// Handle executes env, retrying transient failures in process before
// giving up. Every terminal failure is announced on the deployment's
// message channel and the delivery is acked: the queue is not a retry
// buffer for commands that already failed their retries.
func (h *Handler) Handle(ctx context.Context, env domain.CommandEnvelope) Outcome {
	backoff := h.backoff()

	var err error
	for attempt := 0; attempt < transientAttempts; attempt++ {
		if attempt > 0 {
			if werr := backoff(ctx); werr != nil {
				return Requeue
			}
		}
		err = h.execute(ctx, env)
		if !domain.AsTransient(err) {
			break
		}
		h.logger.Printf("%s %s: transient failure (attempt %d/%d): %v",
			env.Type, env.DeploymentId, attempt+1, transientAttempts, err)
	}

	switch {
	case err == nil:
		return Ack
	case ctx.Err() != nil:
		// shutdown beat us to it; let another consumer finish the job.
		return Requeue
	case domain.AsInvalid(err):
		h.announceFailure(env, "rejected", err)
	case domain.AsDeploymentMissing(err):
		h.announceFailure(env, "no such deployment", err)
	case domain.AsFatalProvision(err):
		h.announceFailure(env, "provisioning rejected by the cluster", err)
	default:
		h.announceFailure(env, "failed", err)
	}
	return Ack
}

func (h *Handler) announceFailure(env domain.CommandEnvelope, what string, err error) {
	h.logger.Printf("%s %s: %s: %v", env.Type, env.DeploymentId, what, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	perr := h.publisher.Publish(
		ctx,
		event.DeploymentMessageChannel(env.DeploymentId),
		event.NewDeploymentSystemMessage(
			env.DeploymentId, event.LevelError,
			fmt.Sprintf("%s command %s: %v", env.Type, what, err),
		),
	)
	if perr != nil {
		h.logger.Printf("%s %s: publishing failure message: %v", env.Type, env.DeploymentId, perr)
	}
}

func (h *Handler) execute(ctx context.Context, env domain.CommandEnvelope) error {
	switch env.Type {
	case domain.CommandCreate:
		return h.create(ctx, env)
	case domain.CommandUpdate:
		return h.update(ctx, env)
	case domain.CommandDelete:
		return h.delete(ctx, env)
	case domain.CommandScale:
		return h.scale(ctx, env)
	case domain.CommandSuspend:
		return h.suspend(ctx, env)
	case domain.CommandResume:
		return h.resume(ctx, env)
	}
	return domain.NewInvalid(fmt.Sprintf("unknown command type: %q", env.Type))
}

func (h *Handler) create(ctx context.Context, env domain.CommandEnvelope) error {
	var p domain.CreatePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return domain.NewInvalidCausedBy("malformed create payload", err)
	}
	if err := p.Validate(); err != nil {
		return err
	}

	replicas := int32(1)
	if p.Replicas != nil {
		replicas = *p.Replicas
	}

	depl := domain.Deployment{
		Id:              env.DeploymentId,
		UserId:          p.UserId,
		ProjectId:       p.ProjectId,
		Name:            p.Name,
		Image:           p.Image,
		ImagePullSecret: p.ImagePullSecret,
		Port:            p.Port,
		DesiredReplicas: replicas,
		Resources:       p.Resources.Merge(domain.DefaultResourceSpec()),
		Env:             p.Env,
		SecretKeys:      secretKeys(p.Secrets),
		Labels:          p.Labels,
		Subdomain:       p.Subdomain,
		Domain:          p.Domain,
		Status:          domain.StatusStarting,
	}

	if err := h.db.Create(ctx, depl); err != nil {
		return err
	}
	if err := h.provisioner.Apply(ctx, depl, p.Secrets); err != nil {
		return err
	}

	h.announceStatus(ctx, depl.Id, domain.StatusStarting)
	h.announce(ctx, depl.Id, event.LevelSuccess, "deployment created")
	return nil
}

func (h *Handler) update(ctx context.Context, env domain.CommandEnvelope) error {
	var p domain.UpdatePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return domain.NewInvalidCausedBy("malformed update payload", err)
	}
	if err := p.Validate(); err != nil {
		return err
	}

	depl, err := h.db.Get(ctx, env.DeploymentId)
	if err != nil {
		return err
	}
	// an update would re-apply the workload and quietly undo the
	// suspension pin; the loops would never see the revived pods.
	if depl.Status == domain.StatusSuspended {
		return domain.NewInvalid("deployment is suspended; resume it before updating")
	}

	if p.Image != nil {
		depl.Image = *p.Image
	}
	if p.ImagePullSecret != nil {
		depl.ImagePullSecret = *p.ImagePullSecret
	}
	if p.Port != nil {
		depl.Port = *p.Port
	}
	depl.Resources = p.Resources.Merge(depl.Resources)
	if p.Env != nil {
		depl.Env = p.Env
	}
	if p.Secrets != nil {
		depl.SecretKeys = secretKeys(p.Secrets)
	}
	if p.Labels != nil {
		depl.Labels = p.Labels
	}
	if p.Domain != nil {
		depl.Domain = *p.Domain
	}

	if err := h.db.UpdateSpec(ctx, depl); err != nil {
		return err
	}
	if p.Replicas != nil {
		if err := h.db.SetDesiredReplicas(ctx, depl.Id, *p.Replicas); err != nil {
			return err
		}
		depl.DesiredReplicas = *p.Replicas
	}
	if err := h.provisioner.Apply(ctx, depl, p.Secrets); err != nil {
		return err
	}

	h.announce(ctx, depl.Id, event.LevelSuccess, "deployment updated")
	return nil
}

func (h *Handler) delete(ctx context.Context, env domain.CommandEnvelope) error {
	depl, err := h.db.Get(ctx, env.DeploymentId)
	if err != nil {
		return err
	}

	if err := h.provisioner.Remove(ctx, depl); err != nil {
		return err
	}
	if err := h.db.Delete(ctx, depl.Id); err != nil {
		return err
	}

	h.announce(ctx, depl.Id, event.LevelInfo, "deployment deleted")
	return nil
}

func (h *Handler) scale(ctx context.Context, env domain.CommandEnvelope) error {
	var p domain.ScalePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return domain.NewInvalidCausedBy("malformed scale payload", err)
	}
	if err := p.Validate(); err != nil {
		return err
	}

	depl, err := h.db.Get(ctx, env.DeploymentId)
	if err != nil {
		return err
	}
	if depl.Status == domain.StatusSuspended {
		return domain.NewInvalid("deployment is suspended; resume it before scaling")
	}

	if err := h.db.SetDesiredReplicas(ctx, depl.Id, p.Replicas); err != nil {
		return err
	}
	if err := h.provisioner.Scale(ctx, depl, p.Replicas); err != nil {
		return err
	}

	h.announce(ctx, depl.Id, event.LevelInfo,
		fmt.Sprintf("deployment scaled to %d replicas", p.Replicas))
	return nil
}

func (h *Handler) suspend(ctx context.Context, env domain.CommandEnvelope) error {
	depl, err := h.db.Get(ctx, env.DeploymentId)
	if err != nil {
		return err
	}

	// a workload that is already gone is as suspended as it gets.
	if err := h.provisioner.Scale(ctx, depl, 0); err != nil && !domain.AsDeploymentMissing(err) {
		return err
	}
	if err := h.db.Suspend(ctx, depl.Id); err != nil {
		return err
	}

	h.announceStatus(ctx, depl.Id, domain.StatusSuspended)
	h.announce(ctx, depl.Id, event.LevelWarning, "deployment suspended")
	return nil
}

func (h *Handler) resume(ctx context.Context, env domain.CommandEnvelope) error {
	replicas, err := h.db.Resume(ctx, env.DeploymentId)
	if err != nil {
		return err
	}
	depl, err := h.db.Get(ctx, env.DeploymentId)
	if err != nil {
		return err
	}

	if err := h.provisioner.Scale(ctx, depl, replicas); err != nil {
		return err
	}

	h.announceStatus(ctx, depl.Id, domain.StatusStarting)
	h.announce(ctx, depl.Id, event.LevelSuccess, "deployment resumed")
	return nil
}

func (h *Handler) announce(ctx context.Context, deploymentId string, level event.Level, message string) {
	err := h.publisher.Publish(
		ctx,
		event.DeploymentMessageChannel(deploymentId),
		event.NewDeploymentSystemMessage(deploymentId, level, message),
	)
	if err != nil {
		h.logger.Printf("publishing message of %s: %v", deploymentId, err)
	}
}

func (h *Handler) announceStatus(ctx context.Context, deploymentId string, status domain.DeploymentStatus) {
	if err := h.cache.SetStatus(ctx, deploymentId, status); err != nil {
		h.logger.Printf("caching status of %s: %v", deploymentId, err)
	}
	err := h.publisher.Publish(
		ctx,
		event.DeploymentStatusChannel(deploymentId),
		event.NewDeploymentStatusUpdate(deploymentId, status),
	)
	if err != nil {
		h.logger.Printf("publishing status of %s: %v", deploymentId, err)
	}
}

func secretKeys(secrets map[string]string) []string {
	if len(secrets) == 0 {
		return nil
	}
	keys := make([]string, 0, len(secrets))
	for k := range secrets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
