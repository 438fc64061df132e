package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/opst/datahub-operator/cmd/operator/pass"
	"github.com/opst/datahub-operator/cmd/operator/status"
	configs "github.com/opst/datahub-operator/pkg/configs/operator"
	kpool "github.com/opst/datahub-operator/pkg/conn/db/postgres/pool"
	k8sconn "github.com/opst/datahub-operator/pkg/conn/k8s"
	regpg "github.com/opst/datahub-operator/pkg/domain/registry/db/postgres"
	seck8s "github.com/opst/datahub-operator/pkg/domain/secrets/k8s"
	supk8s "github.com/opst/datahub-operator/pkg/domain/supervisor/k8s"
	"github.com/opst/datahub-operator/pkg/utils/filewatch"
	"github.com/opst/datahub-operator/pkg/utils/try"
)

// item in the sign key secret holding the HS256 key for web tokens.
const signKeyItem = "key"

func main() {
	logger := log.Default()
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM,
	)
	// call cancel() when this function exits
	defer cancel()

	pconfig := flag.String(
		"config-path", os.Getenv("DATAHUB_OPERATOR_CONFIG"), "path to config file",
	)
	ploglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	flag.Parse()

	{
		// config modification restarts the process with a fresh seal.
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, *pconfig)
		if err != nil {
			logger.Fatal(err)
		}
		defer cancel()
		ctx = wctx
	}

	conf := try.To(configs.LoadOperatorConfig(*pconfig)).OrFatal(logger)

	pgpool := try.To(pgxpool.Connect(ctx, conf.Cluster().Database())).OrFatal(logger)
	defer pgpool.Close()
	pool := kpool.Wrap(pgpool)
	if err := regpg.Ensure(ctx, pool); err != nil {
		logger.Fatalf("can not ensure registry schema: %s", err)
	}
	registry := regpg.New(pool)

	kclientset := k8sconn.ConnectToK8s()
	cluster := Cluster{
		Registry: registry,
		Secrets: seck8s.New(
			seck8s.WrapK8sClient(kclientset), conf.Cluster().Namespace(),
		),
		Supervisor: supk8s.New(
			supk8s.WrapK8sClient(kclientset),
			conf.Cluster().Namespace(),
			conf.Cluster().Images(),
			supk8s.WithExecDeadline(conf.Loops().ExecDeadline()),
		),
	}

	signKey, err := signKeyContent(ctx, cluster, conf.Secrets().SignKey())
	if err != nil {
		logger.Fatal(err)
	}

	params := pass.Params{
		EncryptionKeysSecret:     conf.Secrets().EncryptionKeys(),
		OIDCSecret:               conf.Secrets().OIDC(),
		KafkaTopicPrefix:         conf.DataHub().KafkaTopicPrefix(),
		OpensearchIndexPrefix:    conf.DataHub().OpensearchIndexPrefix(),
		UsePlayCacheSessionStore: conf.DataHub().UsePlayCacheSessionStore(),
		ExternalFrontendHostname: conf.DataHub().ExternalFrontendHostname(),
		HTTPProxy:                conf.DataHub().HTTPProxy(),
		HTTPSProxy:               conf.DataHub().HTTPSProxy(),
		NoProxy:                  conf.DataHub().NoProxy(),
	}

	keeper := status.NewKeeper()

	// wake is written with a non-blocking send: a poke while a pass runs
	// just causes one more pass.
	wakeup := make(chan struct{}, 1)
	wake := func() {
		select {
		case wakeup <- struct{}{}:
		default:
		}
	}

	e := BuildServer(*ploglevel, signKey, registry, keeper, wake)
	context.AfterFunc(ctx, func() {
		graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.Shutdown(graceful); err != nil {
			logger.Printf("error on shutdown: %s", err)
		}
	})

	errch := make(chan error, 3)
	go func() {
		errch <- StartReconcileLoop(
			ctx, logger, cluster, params, keeper,
			wakeup, conf.Loops().ReconcileInterval(),
		)
	}()
	go func() {
		errch <- StartAuditLoop(
			ctx, logger, cluster, params, keeper,
			wake, conf.Loops().AuditInterval(),
		)
	}()
	go func() {
		errch <- e.Start(fmt.Sprintf(":%d", conf.Web().Port()))
	}()

	err = <-errch
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
		logger.Printf("shutting down: %s", context.Cause(ctx))
		return
	}
	logger.Fatal(err)
}

// signKeyContent reads the HS256 key guarding the web surface.
//
// The key lives in a k8s secret so that the relation webhook callers and
// the operator can share it without it ever entering the config file.
func signKeyContent(ctx context.Context, cluster Cluster, name string) ([]byte, error) {
	secret, err := cluster.Secrets.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("can not read sign key secret %s: %w", name, err)
	}
	key := secret[signKeyItem]
	if key == "" {
		return nil, fmt.Errorf("sign key secret %s: item %q is empty", name, signKeyItem)
	}
	return []byte(key), nil
}
