package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/opst/datahub-operator/pkg/domain"
	regmock "github.com/opst/datahub-operator/pkg/domain/registry/db/mock"
	"github.com/opst/datahub-operator/pkg/domain/service"
	supmock "github.com/opst/datahub-operator/pkg/domain/supervisor/mock"
	"github.com/opst/datahub-operator/pkg/utils/try"
)

func TestPostgresqlSetup_Initialize(t *testing.T) {
	t.Run("when the db is resolved but not initialized, it runs the bootstrap and records completion", func(t *testing.T) {
		ctx := context.Background()
		state := fullState(nil)
		state.Database.Initialized = false

		sup := supmock.NewMockSupervisor()
		staged := map[string][]byte{}
		sup.Impl.Stage = func(_ context.Context, name string, files map[string][]byte) error {
			if name != "datahub-postgresql-setup" {
				t.Errorf("staged to %s, want datahub-postgresql-setup", name)
			}
			for file, content := range files {
				staged[file] = content
			}
			return nil
		}
		execed := []domain.ServicePlan{}
		sup.Impl.Exec = func(_ context.Context, name string, plan domain.ServicePlan) error {
			execed = append(execed, plan)
			return nil
		}

		reg := regmock.NewMockRegistry()
		reg.Impl.Get = func(context.Context) (domain.State, error) { return state, nil }
		put := []domain.DatabaseConnection{}
		reg.Impl.PutDatabase = func(_ context.Context, conn domain.DatabaseConnection) error {
			put = append(put, conn)
			return nil
		}

		ran := try.To(service.PostgresqlSetup().Initialize(
			ctx, service.Context{State: state},
			service.Deps{Supervisor: sup, Registry: reg},
		)).OrFatal(t)

		if !ran {
			t.Error("ran = false, want true")
		}
		if _, ok := staged["runner.sh"]; !ok {
			t.Error("runner.sh was not staged")
		}
		if len(execed) != 1 {
			t.Fatalf("Exec called %d times, want 1", len(execed))
		}
		if !strings.HasSuffix(execed[0].Command, " /init.sh") {
			t.Errorf("command = %s, want the staged runner wrapping /init.sh", execed[0].Command)
		}
		if len(put) != 1 {
			t.Fatalf("PutDatabase called %d times, want 1", len(put))
		}
		if !put[0].Initialized {
			t.Error("the recorded connection is not marked initialized")
		}
	})

	t.Run("a relation replaced while the bootstrap runs is not overwritten", func(t *testing.T) {
		state := fullState(nil)
		state.Database.Initialized = false

		replaced := *state.Database
		replaced.Host = "pg-replacement.cluster.local"

		current := state
		sup := supmock.NewMockSupervisor()
		sup.Impl.Stage = func(context.Context, string, map[string][]byte) error { return nil }
		sup.Impl.Exec = func(context.Context, string, domain.ServicePlan) error {
			// a webhook lands while the bootstrap is still running
			current.Database = &replaced
			return nil
		}

		// PutDatabase left unimplemented: recording completion against the
		// replaced descriptor would fail the test.
		reg := regmock.NewMockRegistry()
		reg.Impl.Get = func(context.Context) (domain.State, error) { return current, nil }

		ran := try.To(service.PostgresqlSetup().Initialize(
			context.Background(), service.Context{State: state},
			service.Deps{Supervisor: sup, Registry: reg},
		)).OrFatal(t)

		if !ran {
			t.Error("ran = false, want true so that the pass refreshes its snapshot")
		}
	})

	t.Run("when the db is already initialized, nothing runs", func(t *testing.T) {
		ran := try.To(service.PostgresqlSetup().Initialize(
			context.Background(), service.Context{State: fullState(nil)},
			service.Deps{
				Supervisor: supmock.NewMockSupervisor(),
				Registry:   regmock.NewMockRegistry(),
			},
		)).OrFatal(t)
		if ran {
			t.Error("ran = true, want false")
		}
	})

	t.Run("a failing bootstrap surfaces as an initialization failure and records nothing", func(t *testing.T) {
		state := fullState(nil)
		state.Database.Initialized = false

		sup := supmock.NewMockSupervisor()
		sup.Impl.Stage = func(context.Context, string, map[string][]byte) error { return nil }
		sup.Impl.Exec = func(context.Context, string, domain.ServicePlan) error {
			return errors.New("fake container failure")
		}

		_, err := service.PostgresqlSetup().Initialize(
			context.Background(), service.Context{State: state},
			service.Deps{Supervisor: sup, Registry: regmock.NewMockRegistry()},
		)
		if !errors.Is(err, domain.ErrInitializationFailed) {
			t.Errorf("err = %v, want ErrInitializationFailed", err)
		}
	})
}

func TestKafkaSetup_Initialize(t *testing.T) {
	t.Run("when the broker is resolved but not initialized, it runs the setup and records completion", func(t *testing.T) {
		state := fullState(nil)
		state.Kafka.Initialized = false

		sup := supmock.NewMockSupervisor()
		sup.Impl.Stage = func(context.Context, string, map[string][]byte) error { return nil }
		execed := []domain.ServicePlan{}
		sup.Impl.Exec = func(_ context.Context, name string, plan domain.ServicePlan) error {
			if name != "datahub-kafka-setup" {
				t.Errorf("exec on %s, want datahub-kafka-setup", name)
			}
			execed = append(execed, plan)
			return nil
		}

		reg := regmock.NewMockRegistry()
		reg.Impl.Get = func(context.Context) (domain.State, error) { return state, nil }
		put := []domain.KafkaConnection{}
		reg.Impl.PutKafka = func(_ context.Context, conn domain.KafkaConnection) error {
			put = append(put, conn)
			return nil
		}

		ran := try.To(service.KafkaSetup().Initialize(
			context.Background(), service.Context{State: state},
			service.Deps{Supervisor: sup, Registry: reg},
		)).OrFatal(t)

		if !ran {
			t.Error("ran = false, want true")
		}
		if len(execed) != 1 {
			t.Fatalf("Exec called %d times, want 1", len(execed))
		}
		if len(put) != 1 || !put[0].Initialized {
			t.Errorf("put = %v, want the connection recorded as initialized", put)
		}
	})

	t.Run("a relation removed while the setup runs is not resurrected", func(t *testing.T) {
		state := fullState(nil)
		state.Kafka.Initialized = false

		current := state
		sup := supmock.NewMockSupervisor()
		sup.Impl.Stage = func(context.Context, string, map[string][]byte) error { return nil }
		sup.Impl.Exec = func(context.Context, string, domain.ServicePlan) error {
			// a removal event lands while the setup is still running
			current.Kafka = nil
			return nil
		}

		// PutKafka left unimplemented: writing the removed descriptor back
		// would fail the test.
		reg := regmock.NewMockRegistry()
		reg.Impl.Get = func(context.Context) (domain.State, error) { return current, nil }

		ran := try.To(service.KafkaSetup().Initialize(
			context.Background(), service.Context{State: state},
			service.Deps{Supervisor: sup, Registry: reg},
		)).OrFatal(t)

		if !ran {
			t.Error("ran = false, want true so that the pass refreshes its snapshot")
		}
	})
}

func TestOpensearchSetup_Initialize(t *testing.T) {
	t.Run("it stages the CA bundle next to the runner and points curl at it", func(t *testing.T) {
		state := fullState(nil)
		state.Opensearch.Initialized = false

		sup := supmock.NewMockSupervisor()
		staged := map[string][]byte{}
		sup.Impl.Stage = func(_ context.Context, _ string, files map[string][]byte) error {
			for file, content := range files {
				staged[file] = content
			}
			return nil
		}
		execed := []domain.ServicePlan{}
		sup.Impl.Exec = func(_ context.Context, _ string, plan domain.ServicePlan) error {
			execed = append(execed, plan)
			return nil
		}

		reg := regmock.NewMockRegistry()
		reg.Impl.Get = func(context.Context) (domain.State, error) { return state, nil }
		reg.Impl.PutOpensearch = func(context.Context, domain.OpensearchConnection) error { return nil }

		ran := try.To(service.OpensearchSetup().Initialize(
			context.Background(), service.Context{State: state},
			service.Deps{Supervisor: sup, Registry: reg},
		)).OrFatal(t)

		if !ran {
			t.Error("ran = false, want true")
		}
		if got := string(staged["opensearch_certificates.pem"]); got != caBundle {
			t.Errorf("staged bundle = %s, want the relation's tls-ca", got)
		}
		if len(execed) != 1 {
			t.Fatalf("Exec called %d times, want 1", len(execed))
		}
		want := "/opt/datahub/staged/opensearch_certificates.pem"
		if got := execed[0].Environment["CURL_CA_BUNDLE"]; got != want {
			t.Errorf("CURL_CA_BUNDLE = %s, want %s", got, want)
		}
	})
}

func TestUpgrade_Initialize(t *testing.T) {
	t.Run("it waits for the opensearch indices before migrating", func(t *testing.T) {
		state := fullState(nil)
		state.Opensearch.Initialized = false

		ran := try.To(service.Upgrade().Initialize(
			context.Background(), service.Context{State: state},
			service.Deps{
				Supervisor: supmock.NewMockSupervisor(),
				Registry:   regmock.NewMockRegistry(),
			},
		)).OrFatal(t)
		if ran {
			t.Error("ran = true, want false")
		}
	})

	t.Run("it bootstraps the truststore, migrates and records both flags", func(t *testing.T) {
		state := fullState(nil)

		sup := supmock.NewMockSupervisor()
		sup.Impl.Stage = func(context.Context, string, map[string][]byte) error { return nil }
		execed := []domain.ServicePlan{}
		sup.Impl.Exec = func(_ context.Context, name string, plan domain.ServicePlan) error {
			if name != "datahub-upgrade" {
				t.Errorf("exec on %s, want datahub-upgrade", name)
			}
			execed = append(execed, plan)
			return nil
		}

		reg := regmock.NewMockRegistry()
		flags := []domain.FlagName{}
		reg.Impl.SetFlag = func(_ context.Context, name domain.FlagName, flag domain.Flag) error {
			if flag != domain.Done {
				t.Errorf("flag %s set to %s, want done", name, flag)
			}
			flags = append(flags, name)
			return nil
		}

		ran := try.To(service.Upgrade().Initialize(
			context.Background(), service.Context{State: state},
			service.Deps{Supervisor: sup, Registry: reg},
		)).OrFatal(t)

		if !ran {
			t.Error("ran = false, want true")
		}
		if len(execed) != 2 {
			t.Fatalf("Exec called %d times, want truststore + migration", len(execed))
		}
		if !strings.HasSuffix(execed[0].Command, "init-truststore.sh") {
			t.Errorf("first exec = %s, want the truststore bootstrap", execed[0].Command)
		}
		if !strings.Contains(execed[1].Command, "-u SystemUpdate") {
			t.Errorf("second exec = %s, want the SystemUpdate migration", execed[1].Command)
		}
		if got := execed[1].Environment["EBEAN_DATASOURCE_URL"]; got != "jdbc:postgresql://pg.cluster.local:5432/datahub_db" {
			t.Errorf("migration EBEAN_DATASOURCE_URL = %s", got)
		}
		if len(flags) != 2 ||
			flags[0] != domain.UpgradeTruststoreInitialized ||
			flags[1] != domain.RanUpgrade {
			t.Errorf("flags = %v, want truststore then ran-upgrade", flags)
		}
	})

	t.Run("a done truststore flag skips straight to the migration", func(t *testing.T) {
		state := fullState(map[domain.FlagName]domain.Flag{
			domain.UpgradeTruststoreInitialized: domain.Done,
		})

		sup := supmock.NewMockSupervisor()
		sup.Impl.Stage = func(context.Context, string, map[string][]byte) error { return nil }
		execed := []domain.ServicePlan{}
		sup.Impl.Exec = func(_ context.Context, _ string, plan domain.ServicePlan) error {
			execed = append(execed, plan)
			return nil
		}
		reg := regmock.NewMockRegistry()
		flags := []domain.FlagName{}
		reg.Impl.SetFlag = func(_ context.Context, name domain.FlagName, _ domain.Flag) error {
			flags = append(flags, name)
			return nil
		}

		ran := try.To(service.Upgrade().Initialize(
			context.Background(), service.Context{State: state},
			service.Deps{Supervisor: sup, Registry: reg},
		)).OrFatal(t)

		if !ran {
			t.Error("ran = false, want true")
		}
		if len(execed) != 1 || !strings.Contains(execed[0].Command, "-u SystemUpdate") {
			t.Errorf("execed = %v, want just the migration", execed)
		}
		if len(flags) != 1 || flags[0] != domain.RanUpgrade {
			t.Errorf("flags = %v, want just ran-upgrade", flags)
		}
	})

	t.Run("a done ran-upgrade flag is terminal", func(t *testing.T) {
		ran := try.To(service.Upgrade().Initialize(
			context.Background(),
			service.Context{State: fullState(map[domain.FlagName]domain.Flag{
				domain.RanUpgrade: domain.Done,
			})},
			service.Deps{
				Supervisor: supmock.NewMockSupervisor(),
				Registry:   regmock.NewMockRegistry(),
			},
		)).OrFatal(t)
		if ran {
			t.Error("ran = true, want false")
		}
	})
}

func TestGMS_Initialize(t *testing.T) {
	t.Run("when ready, it initializes the truststore once", func(t *testing.T) {
		state := fullState(map[domain.FlagName]domain.Flag{
			domain.RanUpgrade: domain.Done,
		})

		sup := supmock.NewMockSupervisor()
		staged := map[string][]byte{}
		sup.Impl.Stage = func(_ context.Context, name string, files map[string][]byte) error {
			if name != "datahub-gms" {
				t.Errorf("staged to %s, want datahub-gms", name)
			}
			for file, content := range files {
				staged[file] = content
			}
			return nil
		}
		sup.Impl.Exec = func(_ context.Context, _ string, plan domain.ServicePlan) error {
			if got := plan.Environment["CERT_ALIAS"]; got != "opensearch-root-ca" {
				t.Errorf("CERT_ALIAS = %s, want opensearch-root-ca", got)
			}
			return nil
		}

		reg := regmock.NewMockRegistry()
		flags := []domain.FlagName{}
		reg.Impl.SetFlag = func(_ context.Context, name domain.FlagName, _ domain.Flag) error {
			flags = append(flags, name)
			return nil
		}

		ran := try.To(service.GMS().Initialize(
			context.Background(), service.Context{State: state},
			service.Deps{Supervisor: sup, Registry: reg},
		)).OrFatal(t)

		if !ran {
			t.Error("ran = false, want true")
		}
		if got := string(staged["opensearch_root_ca_cert.pem"]); got != rootCert {
			t.Errorf("staged root CA = %s, want the bundle's second certificate", got)
		}
		if len(flags) != 1 || flags[0] != domain.GMSTruststoreInitialized {
			t.Errorf("flags = %v, want gms-truststore-initialized", flags)
		}
	})

	t.Run("a done flag makes it a no-op", func(t *testing.T) {
		ran := try.To(service.GMS().Initialize(
			context.Background(),
			service.Context{State: fullState(allFlagsDone())},
			service.Deps{
				Supervisor: supmock.NewMockSupervisor(),
				Registry:   regmock.NewMockRegistry(),
			},
		)).OrFatal(t)
		if ran {
			t.Error("ran = true, want false")
		}
	})

	t.Run("a single-certificate CA bundle fails closed", func(t *testing.T) {
		state := fullState(map[domain.FlagName]domain.Flag{
			domain.RanUpgrade: domain.Done,
		})
		state.Opensearch.TLSCA = rootCert

		_, err := service.GMS().Initialize(
			context.Background(), service.Context{State: state},
			service.Deps{
				Supervisor: supmock.NewMockSupervisor(),
				Registry:   regmock.NewMockRegistry(),
			},
		)
		if !errors.Is(err, domain.ErrImproperSecret) {
			t.Errorf("err = %v, want ErrImproperSecret", err)
		}
	})
}

func TestActions_Initialize(t *testing.T) {
	t.Run("actions has no one-time setup", func(t *testing.T) {
		ran := try.To(service.Actions().Initialize(
			context.Background(),
			service.Context{State: fullState(allFlagsDone())},
			service.Deps{},
		)).OrFatal(t)
		if ran {
			t.Error("ran = true, want false")
		}
	})
}
