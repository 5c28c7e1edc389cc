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

	"github.com/poddle/poddle/cmd/provisioner/consumer"
	"github.com/poddle/poddle/pkg/api/health"
	"github.com/poddle/poddle/pkg/cluster"
	configs "github.com/poddle/poddle/pkg/configs/backend"
	"github.com/poddle/poddle/pkg/conn/amqp"
	kpool "github.com/poddle/poddle/pkg/conn/db/postgres/pool"
	connredis "github.com/poddle/poddle/pkg/conn/redis"
	connvault "github.com/poddle/poddle/pkg/conn/vault"
	deppg "github.com/poddle/poddle/pkg/domain/deployment/db/postgres"
	"github.com/poddle/poddle/pkg/domain/deployment/k8s"
	"github.com/poddle/poddle/pkg/event"
	"github.com/poddle/poddle/pkg/secrets"
	"github.com/poddle/poddle/pkg/utils/filewatch"
	"github.com/poddle/poddle/pkg/utils/try"
)

func main() {
	logger := log.Default()
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM,
	)
	defer cancel()

	pconfig := flag.String(
		"config", os.Getenv("PODDLE_BACKEND_CONFIG"), "path to config file",
	)
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

	queue := try.To(amqp.Connect(
		conf.Broker().URL(), conf.Broker().Prefetch(),
	)).OrFatal(logger)
	defer queue.Close()

	provisioner := k8s.New(
		kclient,
		secrets.New(vaultClient, conf.Vault().Mount()),
		k8s.Config{
			BaseDomain:         conf.Cluster().BaseDomain(),
			ClusterIssuer:      conf.Cluster().ClusterIssuer(),
			WildcardSecretName: conf.Cluster().WildcardSecretName(),
			IngressNamespace:   conf.Cluster().IngressNamespace(),
		},
	)

	// fail fast when the shared ingress machinery is missing; every
	// provisioned deployment would be broken without it.
	if err := provisioner.Preflight(ctx); err != nil {
		logger.Fatal(err)
	}

	go func() {
		addr := fmt.Sprintf(":%d", conf.HealthPort())
		if err := health.Serve(ctx, addr); err != nil {
			logger.Printf("health endpoint: %v", err)
		}
	}()

	handler := consumer.NewHandler(
		logger,
		deppg.New(pool),
		provisioner,
		event.NewCache(redisClient),
		event.NewPublisher(redisClient),
	)
	dispatcher := consumer.NewDispatcher(
		logger, handler, conf.Broker().Prefetch(), 16,
	)

	deliveries := try.To(queue.Consume(ctx)).OrFatal(logger)

	logger.Printf("consuming commands from %q", amqp.CommandQueue)
	err := dispatcher.Run(ctx, deliveries)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	logger.Fatal(err)
}
