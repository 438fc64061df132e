package k8s

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/opst/datahub-operator/pkg/domain"
	"github.com/opst/datahub-operator/pkg/domain/supervisor"
	xe "github.com/opst/datahub-operator/pkg/errors"
	"github.com/opst/datahub-operator/pkg/utils/retry"
	kubeapps "k8s.io/api/apps/v1"
	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	applycore "k8s.io/client-go/applyconfigurations/core/v1"
)

const (
	labelName      = "app.kubernetes.io/name"
	labelPartOf    = "app.kubernetes.io/part-of"
	labelComponent = "app.kubernetes.io/component"

	partOf = "datahub"

	componentService = "service"
	componentOneshot = "oneshot"

	stagedVolumeName = "staged"
)

// stagedSecretName names the Secret holding staged files of a workload.
func stagedSecretName(workload string) string {
	return workload + "-staged"
}

type Config struct {
	ExecDeadline time.Duration
	PollInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		ExecDeadline: 30 * time.Minute,
		PollInterval: 5 * time.Second,
	}
}

type Option func(*Config) *Config

func WithExecDeadline(d time.Duration) Option {
	return func(c *Config) *Config {
		c.ExecDeadline = d
		return c
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Config) *Config {
		c.PollInterval = d
		return c
	}
}

type k8sSupervisor struct {
	client    K8sClient
	namespace string

	// workload name -> container image ref
	images map[string]string

	conf Config
}

var _ supervisor.Interface = &k8sSupervisor{}

func New(
	client K8sClient,
	namespace string,
	images map[string]string,
	options ...Option,
) supervisor.Interface {
	c := DefaultConfig()
	for _, option := range options {
		c = *option(&c)
	}
	return &k8sSupervisor{
		client: client, namespace: namespace, images: images, conf: c,
	}
}

func workloadLabels(name string, component string) map[string]string {
	return map[string]string{
		labelName:      name,
		labelPartOf:    partOf,
		labelComponent: component,
	}
}

func (s *k8sSupervisor) CanConnect(ctx context.Context, name string) error {
	if _, err := s.client.GetDeployment(ctx, s.namespace, name); err != nil {
		if kubeerr.IsNotFound(err) {
			return nil
		}
		return xe.Wrap(err)
	}
	return nil
}

func (s *k8sSupervisor) container(name string, plan domain.ServicePlan) kubecore.Container {
	envNames := make([]string, 0, len(plan.Environment))
	for n := range plan.Environment {
		envNames = append(envNames, n)
	}
	sort.Strings(envNames)

	env := make([]kubecore.EnvVar, 0, len(envNames))
	for _, n := range envNames {
		env = append(env, kubecore.EnvVar{Name: n, Value: plan.Environment[n]})
	}

	container := kubecore.Container{
		Name:    name,
		Image:   s.images[name],
		Command: strings.Fields(plan.Command),
		Env:     env,
		VolumeMounts: []kubecore.VolumeMount{
			{Name: stagedVolumeName, MountPath: domain.StageDir, ReadOnly: true},
		},
	}

	if hc := plan.Healthcheck; hc != nil {
		container.ReadinessProbe = &kubecore.Probe{
			ProbeHandler: kubecore.ProbeHandler{
				HTTPGet: &kubecore.HTTPGetAction{
					Path: hc.Path,
					Port: intstr.FromInt32(hc.Port),
				},
			},
		}
	}

	return container
}

func (s *k8sSupervisor) stagedVolume(name string) kubecore.Volume {
	optional := true
	mode := int32(0755)
	return kubecore.Volume{
		Name: stagedVolumeName,
		VolumeSource: kubecore.VolumeSource{
			Secret: &kubecore.SecretVolumeSource{
				SecretName:  stagedSecretName(name),
				Optional:    &optional,
				DefaultMode: &mode,
			},
		},
	}
}

func (s *k8sSupervisor) deployment(name string, plan domain.ServicePlan) *kubeapps.Deployment {
	labels := workloadLabels(name, componentService)

	replicas := int32(0)
	if plan.Enabled {
		replicas = 1
	}

	return &kubeapps.Deployment{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:      name,
			Namespace: s.namespace,
			Labels:    labels,
		},
		Spec: kubeapps.DeploymentSpec{
			Replicas: &replicas,
			Selector: &kubeapimeta.LabelSelector{MatchLabels: labels},
			Template: kubecore.PodTemplateSpec{
				ObjectMeta: kubeapimeta.ObjectMeta{Labels: labels},
				Spec: kubecore.PodSpec{
					Containers: []kubecore.Container{s.container(name, plan)},
					Volumes:    []kubecore.Volume{s.stagedVolume(name)},
				},
			},
		},
	}
}

func (s *k8sSupervisor) SubmitPlan(ctx context.Context, name string, plan domain.ServicePlan) error {
	desired := s.deployment(name, plan)

	current, err := s.client.GetDeployment(ctx, s.namespace, name)
	if kubeerr.IsNotFound(err) {
		if _, err := s.client.CreateDeployment(ctx, s.namespace, desired); err != nil {
			return xe.Wrap(err)
		}
		return nil
	} else if err != nil {
		return xe.Wrap(err)
	}

	desired.ResourceVersion = current.ResourceVersion
	if _, err := s.client.UpdateDeployment(ctx, s.namespace, desired); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

func (s *k8sSupervisor) ActualPlan(ctx context.Context, name string) (domain.ServicePlan, error) {
	depl, err := s.client.GetDeployment(ctx, s.namespace, name)
	if kubeerr.IsNotFound(err) {
		return domain.ServicePlan{}, nil
	} else if err != nil {
		return domain.ServicePlan{}, xe.Wrap(err)
	}

	plan := domain.ServicePlan{}
	if r := depl.Spec.Replicas; r != nil && 0 < *r {
		plan.Enabled = true
	}

	containers := depl.Spec.Template.Spec.Containers
	if len(containers) == 0 {
		return plan, nil
	}
	container := containers[0]

	plan.Command = strings.Join(container.Command, " ")

	if plan.Enabled && 0 < len(container.Env) {
		env := make(map[string]string, len(container.Env))
		for _, e := range container.Env {
			env[e.Name] = e.Value
		}
		plan.Environment = env
	}

	if probe := container.ReadinessProbe; probe != nil && probe.HTTPGet != nil {
		plan.Healthcheck = &domain.Healthcheck{
			Path: probe.HTTPGet.Path,
			Port: probe.HTTPGet.Port.IntVal,
		}
	}

	return plan, nil
}

func (s *k8sSupervisor) Health(ctx context.Context, name string) (domain.Health, error) {
	pods, err := s.client.FindPods(
		ctx, s.namespace, LabelsToSelecor(workloadLabels(name, componentService)),
	)
	if err != nil {
		return domain.HealthDown, xe.Wrap(err)
	}

	for _, pod := range pods {
		for _, cond := range pod.Status.Conditions {
			if cond.Type == kubecore.PodReady && cond.Status == kubecore.ConditionTrue {
				return domain.HealthUp, nil
			}
		}
	}
	return domain.HealthDown, nil
}

func (s *k8sSupervisor) Exec(ctx context.Context, name string, plan domain.ServicePlan) error {
	container := s.container(name, plan)
	container.ReadinessProbe = nil

	backoffLimit := int32(0)
	deadline := int64(s.conf.ExecDeadline.Seconds())
	job := &kubebatch.Job{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:      name,
			Namespace: s.namespace,
			Labels:    workloadLabels(name, componentOneshot),
		},
		Spec: kubebatch.JobSpec{
			BackoffLimit:          &backoffLimit,
			ActiveDeadlineSeconds: &deadline,
			Template: kubecore.PodTemplateSpec{
				ObjectMeta: kubeapimeta.ObjectMeta{Labels: workloadLabels(name, componentOneshot)},
				Spec: kubecore.PodSpec{
					RestartPolicy: kubecore.RestartPolicyNever,
					Containers:    []kubecore.Container{container},
					Volumes:       []kubecore.Volume{s.stagedVolume(name)},
				},
			},
		},
	}

	if _, err := s.client.CreateJob(ctx, s.namespace, job); err != nil {
		if kubeerr.IsAlreadyExists(err) {
			// stale leftover of an interrupted run. sweep it; retried next pass.
			s.client.DeleteJob(ctx, s.namespace, name)
		}
		return xe.Wrap(err)
	}
	defer s.client.DeleteJob(ctx, s.namespace, name)

	_, err := retry.Blocking(
		ctx, retry.StaticBackoff(s.conf.PollInterval),
		func() (struct{}, error) {
			j, err := s.client.GetJob(ctx, s.namespace, name)
			if err != nil {
				return struct{}{}, err
			}
			for _, cond := range j.Status.Conditions {
				if cond.Status != kubecore.ConditionTrue {
					continue
				}
				switch cond.Type {
				case kubebatch.JobComplete:
					return struct{}{}, nil
				case kubebatch.JobFailed:
					return struct{}{}, xe.New(fmt.Sprintf(
						"one-shot %s failed: %s: %s", name, cond.Reason, cond.Message,
					))
				}
			}
			return struct{}{}, retry.ErrRetry
		},
	)
	return err
}

func (s *k8sSupervisor) Stage(ctx context.Context, name string, files map[string][]byte) error {
	spec := applycore.Secret(stagedSecretName(name), s.namespace).
		WithLabels(workloadLabels(name, componentService)).
		WithData(files)

	if _, err := s.client.UpsertSecret(ctx, s.namespace, spec); err != nil {
		return xe.Wrap(err)
	}
	return nil
}
