package reconcile_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/opst/datahub-operator/cmd/operator/pass"
	"github.com/opst/datahub-operator/cmd/operator/status"
	"github.com/opst/datahub-operator/cmd/operator/tasks/reconcile"
	"github.com/opst/datahub-operator/pkg/domain"
	regmock "github.com/opst/datahub-operator/pkg/domain/registry/db/mock"
	"github.com/opst/datahub-operator/pkg/domain/secrets"
	secmock "github.com/opst/datahub-operator/pkg/domain/secrets/mock"
	supmock "github.com/opst/datahub-operator/pkg/domain/supervisor/mock"
)

const leafCert = "-----BEGIN CERTIFICATE-----\nleaf\n-----END CERTIFICATE-----"
const rootCert = "-----BEGIN CERTIFICATE-----\nroot\n-----END CERTIFICATE-----"

func fullState(flags map[domain.FlagName]domain.Flag) domain.State {
	return domain.State{
		Database: &domain.DatabaseConnection{
			Host: "pg", Port: "5432", Username: "u", Password: "p",
			DBName: "datahub_db", Initialized: true,
		},
		Kafka: &domain.KafkaConnection{
			BootstrapServer: "kafka:9092", Username: "u", Password: "p",
			Initialized: true,
		},
		Opensearch: &domain.OpensearchConnection{
			Host: "os", Port: "9200", Username: "u", Password: "p",
			TLSCA: leafCert + "\n" + rootCert + "\n", Initialized: true,
		},
		Flags: flags,
	}
}

func allFlagsDone() map[domain.FlagName]domain.Flag {
	return map[domain.FlagName]domain.Flag{
		domain.RanUpgrade:                    domain.Done,
		domain.UpgradeTruststoreInitialized:  domain.Done,
		domain.GMSTruststoreInitialized:      domain.Done,
		domain.FrontendTruststoreInitialized: domain.Done,
	}
}

func goodSecrets() *secmock.MockSecrets {
	return secmock.Fixed(map[string]secrets.Secret{
		"datahub-encryption-keys": {
			"gms-key": "gms-encryption-key", "frontend-key": "frontend-encryption-key",
		},
	})
}

var params = pass.Params{EncryptionKeysSecret: "datahub-encryption-keys"}

func logger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestReconcile(t *testing.T) {
	t.Run("a missing encryption keys secret blocks the pass", func(t *testing.T) {
		reg := regmock.NewMockRegistry()
		reg.Impl.Get = func(context.Context) (domain.State, error) {
			return fullState(allFlagsDone()), nil
		}
		keeper := status.NewKeeper()

		task := reconcile.Task(
			logger(), params, reg, secmock.Fixed(nil),
			supmock.NewMockSupervisor(), keeper,
		)
		st, _, err := task(context.Background(), domain.Status{})
		if err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if st.Kind != domain.StatusBlocked {
			t.Errorf("status = %s, want blocked", st)
		}
		if got := keeper.Get(); got != st {
			t.Errorf("keeper = %s, want %s", got, st)
		}
	})

	t.Run("an empty encryption key blocks the pass", func(t *testing.T) {
		reg := regmock.NewMockRegistry()
		reg.Impl.Get = func(context.Context) (domain.State, error) {
			return fullState(allFlagsDone()), nil
		}
		store := secmock.Fixed(map[string]secrets.Secret{
			"datahub-encryption-keys": {"gms-key": "", "frontend-key": "x"},
		})

		task := reconcile.Task(
			logger(), params, reg, store,
			supmock.NewMockSupervisor(), status.NewKeeper(),
		)
		st, _, err := task(context.Background(), domain.Status{})
		if err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if st.Kind != domain.StatusBlocked {
			t.Errorf("status = %s, want blocked", st)
		}
	})

	t.Run("missing relations submit disabled plans and block", func(t *testing.T) {
		state := domain.State{
			Database: &domain.DatabaseConnection{
				Host: "pg", Port: "5432", DBName: "datahub_db", Initialized: true,
			},
		}
		reg := regmock.NewMockRegistry()
		reg.Impl.Get = func(context.Context) (domain.State, error) { return state, nil }

		sup := supmock.NewMockSupervisor()
		sup.Impl.CanConnect = func(context.Context, string) error { return nil }
		submitted := map[string]domain.ServicePlan{}
		sup.Impl.SubmitPlan = func(_ context.Context, name string, plan domain.ServicePlan) error {
			submitted[name] = plan
			return nil
		}

		task := reconcile.Task(logger(), params, reg, goodSecrets(), sup, status.NewKeeper())
		st, _, err := task(context.Background(), domain.Status{})
		if err != nil {
			t.Fatalf("err = %v, want nil", err)
		}

		want := domain.Blocked("missing relation(s): kafka, opensearch")
		if st != want {
			t.Errorf("status = %s, want %s", st, want)
		}
		if len(submitted) != 7 {
			t.Fatalf("submitted %d plans, want 7", len(submitted))
		}
		for name, plan := range submitted {
			if name == "datahub-postgresql-setup" {
				if !plan.Enabled {
					t.Errorf("%s disabled, want enabled", name)
				}
				continue
			}
			if plan.Enabled {
				t.Errorf("%s enabled, want disabled", name)
			}
			if plan.Environment != nil {
				t.Errorf("%s has an environment while disabled", name)
			}
		}
	})

	t.Run("a fully initialized state submits every plan and goes into maintenance", func(t *testing.T) {
		reg := regmock.NewMockRegistry()
		reg.Impl.Get = func(context.Context) (domain.State, error) {
			return fullState(allFlagsDone()), nil
		}

		sup := supmock.NewMockSupervisor()
		sup.Impl.CanConnect = func(context.Context, string) error { return nil }
		submitted := map[string]domain.ServicePlan{}
		sup.Impl.SubmitPlan = func(_ context.Context, name string, plan domain.ServicePlan) error {
			submitted[name] = plan
			return nil
		}

		keeper := status.NewKeeper()
		task := reconcile.Task(logger(), params, reg, goodSecrets(), sup, keeper)
		st, updated, err := task(context.Background(), domain.Status{})
		if err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if !updated {
			t.Error("updated = false, want true")
		}
		if want := domain.Maintenance("replanning"); st != want {
			t.Errorf("status = %s, want %s", st, want)
		}

		gms, ok := submitted["datahub-gms"]
		if !ok {
			t.Fatal("no plan submitted for datahub-gms")
		}
		if !gms.Enabled {
			t.Error("gms disabled, want enabled")
		}
		if gms.Environment["SECRET_SERVICE_ENCRYPTION_KEY"] != "gms-encryption-key" {
			t.Error("gms environment misses the encryption key")
		}
		if gms.Healthcheck == nil || gms.Healthcheck.Path != "/health" {
			t.Errorf("gms healthcheck = %v, want /health", gms.Healthcheck)
		}
	})

	t.Run("an unreachable supervisor defers the whole pass", func(t *testing.T) {
		reg := regmock.NewMockRegistry()
		reg.Impl.Get = func(context.Context) (domain.State, error) {
			return fullState(allFlagsDone()), nil
		}

		sup := supmock.NewMockSupervisor()
		sup.Impl.CanConnect = func(_ context.Context, name string) error {
			if name == "datahub-frontend" {
				return errors.New("fake: connection refused")
			}
			return nil
		}
		// Impl.SubmitPlan left nil: a submission would error the test out.

		task := reconcile.Task(logger(), params, reg, goodSecrets(), sup, status.NewKeeper())
		st, _, err := task(context.Background(), domain.Status{})
		if err != nil {
			t.Fatalf("err = %v, want nil (defer, not fail)", err)
		}
		if st.Kind != domain.StatusWaiting {
			t.Errorf("status = %s, want waiting", st)
		}
	})

	t.Run("an initialization failure aborts the pass with an error", func(t *testing.T) {
		state := fullState(allFlagsDone())
		state.Database.Initialized = false

		reg := regmock.NewMockRegistry()
		reg.Impl.Get = func(context.Context) (domain.State, error) { return state, nil }

		sup := supmock.NewMockSupervisor()
		sup.Impl.Stage = func(context.Context, string, map[string][]byte) error { return nil }
		sup.Impl.Exec = func(context.Context, string, domain.ServicePlan) error {
			return errors.New("fake container failure")
		}

		keeper := status.NewKeeper()
		before := keeper.Get()
		task := reconcile.Task(logger(), params, reg, goodSecrets(), sup, keeper)
		_, _, err := task(context.Background(), domain.Status{})
		if !errors.Is(err, domain.ErrInitializationFailed) {
			t.Errorf("err = %v, want ErrInitializationFailed", err)
		}
		if got := keeper.Get(); got != before {
			t.Errorf("keeper = %s, want unchanged %s", got, before)
		}
	})

	t.Run("a ran initialization refreshes the state snapshot before planning", func(t *testing.T) {
		stale := fullState(allFlagsDone())
		stale.Database.Initialized = false
		fresh := fullState(allFlagsDone())

		reg := regmock.NewMockRegistry()
		reads := 0
		reg.Impl.Get = func(context.Context) (domain.State, error) {
			reads += 1
			if reads == 1 {
				return stale, nil
			}
			return fresh, nil
		}
		reg.Impl.PutDatabase = func(context.Context, domain.DatabaseConnection) error { return nil }

		sup := supmock.NewMockSupervisor()
		sup.Impl.Stage = func(context.Context, string, map[string][]byte) error { return nil }
		sup.Impl.Exec = func(context.Context, string, domain.ServicePlan) error { return nil }
		sup.Impl.CanConnect = func(context.Context, string) error { return nil }
		submitted := map[string]domain.ServicePlan{}
		sup.Impl.SubmitPlan = func(_ context.Context, name string, plan domain.ServicePlan) error {
			submitted[name] = plan
			return nil
		}

		task := reconcile.Task(logger(), params, reg, goodSecrets(), sup, status.NewKeeper())
		st, _, err := task(context.Background(), domain.Status{})
		if err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if want := domain.Maintenance("replanning"); st != want {
			t.Errorf("status = %s, want %s", st, want)
		}
		if reads < 2 {
			t.Errorf("registry read %d times, want a refresh after initialization", reads)
		}
		if !submitted["datahub-gms"].Enabled {
			t.Error("gms disabled after the db bootstrap, want enabled")
		}
	})
}
