package k8s_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opst/datahub-operator/pkg/domain"
	k8s "github.com/opst/datahub-operator/pkg/domain/supervisor/k8s"
	"github.com/opst/datahub-operator/pkg/domain/supervisor/k8s/mock"
	"github.com/opst/datahub-operator/pkg/utils/cmp"
	"github.com/opst/datahub-operator/pkg/utils/try"
	kubeapps "k8s.io/api/apps/v1"
	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
	applycore "k8s.io/client-go/applyconfigurations/core/v1"
)

const namespace = "test-namespace"

var images = map[string]string{
	"datahub-gms": "acryldata/datahub-gms:v0.13.1",
}

func notFound(name string) error {
	return kubeerr.NewNotFound(
		schema.GroupResource{Group: "apps", Resource: "deployments"}, name,
	)
}

func TestSupervisor_CanConnect(t *testing.T) {
	t.Run("a workload which does not exist yet is reachable", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.GetDeployment = func(ctx context.Context, ns string, name string) (*kubeapps.Deployment, error) {
			return nil, notFound(name)
		}
		testee := k8s.New(client, namespace, images)

		if err := testee.CanConnect(context.Background(), "datahub-gms"); err != nil {
			t.Errorf("unexpected error: %s", err)
		}
	})

	t.Run("a transport failure means unreachable", func(t *testing.T) {
		client := mock.NewMockClient()
		expectedErr := errors.New("fake api outage")
		client.Impl.GetDeployment = func(ctx context.Context, ns string, name string) (*kubeapps.Deployment, error) {
			return nil, expectedErr
		}
		testee := k8s.New(client, namespace, images)

		if err := testee.CanConnect(context.Background(), "datahub-gms"); !errors.Is(err, expectedErr) {
			t.Errorf("error is not propagated: %s", err)
		}
	})
}

func TestSupervisor_SubmitPlan(t *testing.T) {
	plan := domain.ServicePlan{
		Enabled: true,
		Command: "/datahub/datahub-gms/start.sh",
		Environment: map[string]string{
			"EBEAN_DATASOURCE_HOST":  "pg.example:5432",
			"KAFKA_BOOTSTRAP_SERVER": "kafka.example:9092",
		},
		Healthcheck: &domain.Healthcheck{Path: "/health", Port: 8080},
	}

	t.Run("an unknown workload is created", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.GetDeployment = func(ctx context.Context, ns string, name string) (*kubeapps.Deployment, error) {
			return nil, notFound(name)
		}
		var created *kubeapps.Deployment
		client.Impl.CreateDeployment = func(ctx context.Context, ns string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
			if ns != namespace {
				t.Errorf("namespace: got %s, expected %s", ns, namespace)
			}
			created = depl
			return depl, nil
		}
		testee := k8s.New(client, namespace, images)

		if err := testee.SubmitPlan(context.Background(), "datahub-gms", plan); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		if created == nil {
			t.Fatal("deployment is not created")
		}
		if client.Called.UpdateDeployment != 0 {
			t.Error("update should not happen on create")
		}
		if r := created.Spec.Replicas; r == nil || *r != 1 {
			t.Errorf("enabled plan should run 1 replica: %v", r)
		}
		container := created.Spec.Template.Spec.Containers[0]
		if container.Image != images["datahub-gms"] {
			t.Errorf("image: got %s", container.Image)
		}
		if len(container.Command) != 1 || container.Command[0] != plan.Command {
			t.Errorf("command: got %v", container.Command)
		}
		if probe := container.ReadinessProbe; probe == nil ||
			probe.HTTPGet == nil ||
			probe.HTTPGet.Path != "/health" ||
			probe.HTTPGet.Port.IntVal != 8080 {
			t.Errorf("readiness probe is not derived from healthcheck: %+v", probe)
		}
	})

	t.Run("a known workload is updated in place", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.GetDeployment = func(ctx context.Context, ns string, name string) (*kubeapps.Deployment, error) {
			current := &kubeapps.Deployment{}
			current.ResourceVersion = "42"
			return current, nil
		}
		var updated *kubeapps.Deployment
		client.Impl.UpdateDeployment = func(ctx context.Context, ns string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
			updated = depl
			return depl, nil
		}
		testee := k8s.New(client, namespace, images)

		disabled := domain.ServicePlan{Command: plan.Command}
		if err := testee.SubmitPlan(context.Background(), "datahub-gms", disabled); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		if updated == nil {
			t.Fatal("deployment is not updated")
		}
		if updated.ResourceVersion != "42" {
			t.Errorf("resource version is not carried over: %s", updated.ResourceVersion)
		}
		if r := updated.Spec.Replicas; r == nil || *r != 0 {
			t.Errorf("disabled plan should run 0 replicas: %v", r)
		}
	})
}

func TestSupervisor_ActualPlan(t *testing.T) {
	t.Run("the submitted plan is read back as it was", func(t *testing.T) {
		plan := domain.ServicePlan{
			Enabled: true,
			Command: "/datahub/datahub-gms/start.sh",
			Environment: map[string]string{
				"EBEAN_DATASOURCE_HOST": "pg.example:5432",
			},
			Healthcheck: &domain.Healthcheck{Path: "/health", Port: 8080},
		}

		client := mock.NewMockClient()
		var stored *kubeapps.Deployment
		client.Impl.GetDeployment = func(ctx context.Context, ns string, name string) (*kubeapps.Deployment, error) {
			if stored == nil {
				return nil, notFound(name)
			}
			return stored, nil
		}
		client.Impl.CreateDeployment = func(ctx context.Context, ns string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
			stored = depl
			return depl, nil
		}
		testee := k8s.New(client, namespace, images)

		if err := testee.SubmitPlan(context.Background(), "datahub-gms", plan); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		actual := try.To(testee.ActualPlan(context.Background(), "datahub-gms")).OrFatal(t)
		if !actual.Equal(plan) {
			t.Errorf("plan does not round-trip: got %s, expected %s", actual, plan)
		}
	})

	t.Run("a workload never submitted yields a zero plan", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.GetDeployment = func(ctx context.Context, ns string, name string) (*kubeapps.Deployment, error) {
			return nil, notFound(name)
		}
		testee := k8s.New(client, namespace, images)

		actual := try.To(testee.ActualPlan(context.Background(), "datahub-gms")).OrFatal(t)
		if !actual.Equal(domain.ServicePlan{}) {
			t.Errorf("expected zero plan: got %s", actual)
		}
	})
}

func TestSupervisor_Health(t *testing.T) {
	podWithReady := func(status kubecore.ConditionStatus) kubecore.Pod {
		return kubecore.Pod{
			Status: kubecore.PodStatus{
				Conditions: []kubecore.PodCondition{
					{Type: kubecore.PodReady, Status: status},
				},
			},
		}
	}

	for name, testcase := range map[string]struct {
		pods     []kubecore.Pod
		expected domain.Health
	}{
		"when a pod is ready, the workload is UP": {
			pods:     []kubecore.Pod{podWithReady(kubecore.ConditionTrue)},
			expected: domain.HealthUp,
		},
		"when no pod is ready, the workload is DOWN": {
			pods:     []kubecore.Pod{podWithReady(kubecore.ConditionFalse)},
			expected: domain.HealthDown,
		},
		"when no pods are found, the workload is DOWN": {
			pods:     nil,
			expected: domain.HealthDown,
		},
	} {
		t.Run(name, func(t *testing.T) {
			client := mock.NewMockClient()
			client.Impl.FindPods = func(ctx context.Context, ns string, ls k8s.LabelSelector) ([]kubecore.Pod, error) {
				return testcase.pods, nil
			}
			testee := k8s.New(client, namespace, images)

			health := try.To(testee.Health(context.Background(), "datahub-gms")).OrFatal(t)
			if health != testcase.expected {
				t.Errorf("health: got %s, expected %s", health, testcase.expected)
			}
		})
	}
}

func TestSupervisor_Exec(t *testing.T) {
	plan := domain.ServicePlan{
		Enabled: true,
		Command: "/datahub/datahub-upgrade/run.sh",
	}

	t.Run("a completed one-shot succeeds and is swept", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.CreateJob = func(ctx context.Context, ns string, job *kubebatch.Job) (*kubebatch.Job, error) {
			if bl := job.Spec.BackoffLimit; bl == nil || *bl != 0 {
				t.Errorf("one-shots must not be retried by k8s: %v", bl)
			}
			return job, nil
		}
		client.Impl.GetJob = func(ctx context.Context, ns string, name string) (*kubebatch.Job, error) {
			return &kubebatch.Job{
				Status: kubebatch.JobStatus{
					Conditions: []kubebatch.JobCondition{
						{Type: kubebatch.JobComplete, Status: kubecore.ConditionTrue},
					},
				},
			}, nil
		}
		client.Impl.DeleteJob = func(ctx context.Context, ns string, name string) error {
			return nil
		}
		testee := k8s.New(
			client, namespace, images, k8s.WithPollInterval(time.Millisecond),
		)

		if err := testee.Exec(context.Background(), "datahub-upgrade", plan); err != nil {
			t.Errorf("unexpected error: %s", err)
		}
		if client.Called.DeleteJob != 1 {
			t.Errorf("finished job should be deleted: called %d times", client.Called.DeleteJob)
		}
	})

	t.Run("a failed one-shot is an error", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.CreateJob = func(ctx context.Context, ns string, job *kubebatch.Job) (*kubebatch.Job, error) {
			return job, nil
		}
		client.Impl.GetJob = func(ctx context.Context, ns string, name string) (*kubebatch.Job, error) {
			return &kubebatch.Job{
				Status: kubebatch.JobStatus{
					Conditions: []kubebatch.JobCondition{
						{Type: kubebatch.JobFailed, Status: kubecore.ConditionTrue, Reason: "BackoffLimitExceeded"},
					},
				},
			}, nil
		}
		client.Impl.DeleteJob = func(ctx context.Context, ns string, name string) error {
			return nil
		}
		testee := k8s.New(
			client, namespace, images, k8s.WithPollInterval(time.Millisecond),
		)

		if err := testee.Exec(context.Background(), "datahub-upgrade", plan); err == nil {
			t.Error("expected error, but got nil")
		}
	})
}

func TestSupervisor_Stage(t *testing.T) {
	t.Run("files are pushed as a staged secret", func(t *testing.T) {
		files := map[string][]byte{
			"start.sh":       []byte("#!/bin/bash\nexec java -jar gms.jar\n"),
			"truststore.pem": []byte("-----BEGIN CERTIFICATE-----\n..."),
		}

		client := mock.NewMockClient()
		var staged *applycore.SecretApplyConfiguration
		client.Impl.UpsertSecret = func(ctx context.Context, ns string, spec *applycore.SecretApplyConfiguration) (*kubecore.Secret, error) {
			if ns != namespace {
				t.Errorf("namespace: got %s, expected %s", ns, namespace)
			}
			staged = spec
			return &kubecore.Secret{}, nil
		}
		testee := k8s.New(client, namespace, images)

		if err := testee.Stage(context.Background(), "datahub-gms", files); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		if staged == nil {
			t.Fatal("secret is not upserted")
		}
		if staged.Name == nil || *staged.Name != "datahub-gms-staged" {
			t.Errorf("secret name: got %v", staged.Name)
		}
		if !cmp.MapEqWith(staged.Data, files, bytes.Equal) {
			t.Errorf("staged data: got %v", staged.Data)
		}
	})
}
