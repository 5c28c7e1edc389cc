package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/poddle/poddle/cmd/loops/loop/recurring"
	"github.com/poddle/poddle/pkg/api/health"
	"github.com/poddle/poddle/pkg/cluster"
	configs "github.com/poddle/poddle/pkg/configs/backend"
	"github.com/poddle/poddle/pkg/conn/amqp"
	kpool "github.com/poddle/poddle/pkg/conn/db/postgres/pool"
	connprom "github.com/poddle/poddle/pkg/conn/prometheus"
	connredis "github.com/poddle/poddle/pkg/conn/redis"
	connvault "github.com/poddle/poddle/pkg/conn/vault"
	bilpg "github.com/poddle/poddle/pkg/domain/billing/db/postgres"
	deppg "github.com/poddle/poddle/pkg/domain/deployment/db/postgres"
	"github.com/poddle/poddle/pkg/domain/deployment/k8s"
	"github.com/poddle/poddle/pkg/event"
	"github.com/poddle/poddle/pkg/metrics"
	"github.com/poddle/poddle/pkg/secrets"
	"github.com/poddle/poddle/pkg/utils/args"
	"github.com/poddle/poddle/pkg/utils/filewatch"
	"github.com/poddle/poddle/pkg/utils/try"
)

func main() {
	logger := log.Default()
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM,
	)
	// call cancel() when this function exits
	defer cancel()

	// define command line flags
	//-- path to config file
	pconfig := flag.String(
		"config", os.Getenv("PODDLE_BACKEND_CONFIG"), "path to config file",
	)
	//-- which loop type to run
	loopType := args.Parser(AsLoopType)
	flag.Var(loopType, "type", "one of loop type (reconcile|metrics|accrual)")
	//-- loop policy
	policy := args.Parser(recurring.ParsePolicy)
	flag.Var(
		policy, "policy",
		`loop policy (syntax: forever[:COOLDOWN]|backlog).`+
			` "forever[:COOLDOWN]" = run forever until error. When backlog is over, `+
			`wait COOLDOWN (optional duration. default: 0) as inteval.`+
			` "backlog" = run until error or backlog is over.`,
	)
	// parse command line flags
	flag.Parse()

	{
		// restart on config change, via the orchestrator
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, *pconfig)
		if err != nil {
			logger.Fatal(err)
		}
		defer cancel()
		ctx = wctx
	}

	conf := try.To(configs.LoadBackendConfig(*pconfig)).OrFatal(logger)

	pool := try.To(kpool.Connect(ctx, conf.Database())).OrFatal(logger)
	defer pool.Close()

	kclient := try.To(cluster.Connect()).OrFatal(logger)

	redisClient := try.To(connredis.Connect(
		ctx, conf.Redis().Address(), conf.Redis().Password(), conf.Redis().DB(),
	)).OrFatal(logger)
	defer redisClient.Close()

	vaultClient := try.To(connvault.Connect(
		conf.Vault().Address(), conf.Vault().Token(),
	)).OrFatal(logger)

	promAPI := try.To(connprom.Connect(conf.Prometheus().Address())).OrFatal(logger)

	queue := try.To(amqp.Connect(
		conf.Broker().URL(), conf.Broker().Prefetch(),
	)).OrFatal(logger)
	defer queue.Close()

	deps := Deps{
		Deployments: deppg.New(pool),
		Billing:     bilpg.New(pool),
		Provisioner: k8s.New(
			kclient,
			secrets.New(vaultClient, conf.Vault().Mount()),
			k8s.Config{
				BaseDomain:         conf.Cluster().BaseDomain(),
				ClusterIssuer:      conf.Cluster().ClusterIssuer(),
				WildcardSecretName: conf.Cluster().WildcardSecretName(),
				IngressNamespace:   conf.Cluster().IngressNamespace(),
			},
		),
		Cache:     event.NewCache(redisClient),
		Publisher: event.NewPublisher(redisClient),
		Source:    metrics.New(promAPI),
		Sender:    queue,
	}

	probe := health.NewProbe(
		loopType.Value().String(), ProbeStale(conf, loopType.Value()),
	)
	go func() {
		addr := fmt.Sprintf(":%d", conf.HealthPort())
		if err := health.Serve(ctx, addr, probe); err != nil {
			logger.Printf("health endpoint: %v", err)
		}
	}()

	logger.Printf(
		`start loop "%s" /w policy "%s"`,
		loopType.Value().String(), policy.Value().String(),
	)

	err := StartLoop(
		ctx, logger, conf, deps, probe,
		LoopManifest{
			Type:   loopType.Value(),
			Policy: recurring.UntilError(policy.Value()),
		},
	)

	if err == nil {
		return
	} else if errors.Is(err, context.Canceled) {
		logger.Fatal(err, "(loop context is cancelled by:", context.Cause(ctx), ")")
	}

	logger.Fatal(err)
}
