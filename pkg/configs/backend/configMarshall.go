package backend

import (
	"fmt"
	"time"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/backend.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

type BackendConfigMarshall struct {
	HealthPort int32                     `yaml:"healthPort,omitempty"`
	Cluster    *ClusterConfigMarshall    `yaml:"cluster"`
	Database   string                    `yaml:"database"`
	Redis      *RedisConfigMarshall      `yaml:"redis"`
	Broker     *BrokerConfigMarshall     `yaml:"broker"`
	Vault      *VaultConfigMarshall      `yaml:"vault"`
	Prometheus *PrometheusConfigMarshall `yaml:"prometheus"`
	Loops      *LoopsConfigMarshall      `yaml:"loops,omitempty"`
	Billing    *BillingConfigMarshall    `yaml:"billing"`
}

var _ Marshalled[*BackendConfig] = &BackendConfigMarshall{}

func (b *BackendConfigMarshall) trySeal(path string) *BackendConfig {
	healthPort := b.HealthPort
	if healthPort == 0 {
		healthPort = 8080
	}
	loops := b.Loops
	if loops == nil {
		loops = &LoopsConfigMarshall{}
	}
	return &BackendConfig{
		healthPort: healthPort,
		cluster:    nonnil(b.Cluster, path+".cluster").trySeal(path + ".cluster"),
		database:   required(b.Database, path+".database"),
		redis:      nonnil(b.Redis, path+".redis").trySeal(path + ".redis"),
		broker:     nonnil(b.Broker, path+".broker").trySeal(path + ".broker"),
		vault:      nonnil(b.Vault, path+".vault").trySeal(path + ".vault"),
		prometheus: nonnil(b.Prometheus, path+".prometheus").trySeal(path + ".prometheus"),
		loops:      loops.trySeal(path + ".loops"),
		billing:    nonnil(b.Billing, path+".billing").trySeal(path + ".billing"),
	}
}

// Configuration of the target cluster.
//
// This type is marshalling value and mutable.
// Consider to use immutable version, `ClusterConfig`.
type ClusterConfigMarshall struct {
	BaseDomain         string `yaml:"baseDomain"`
	ClusterIssuer      string `yaml:"clusterIssuer"`
	WildcardSecretName string `yaml:"wildcardSecretName"`
	IngressNamespace   string `yaml:"ingressNamespace"`
}

func (cm *ClusterConfigMarshall) trySeal(path string) *ClusterConfig {
	return &ClusterConfig{
		baseDomain:         required(cm.BaseDomain, path+".baseDomain"),
		clusterIssuer:      required(cm.ClusterIssuer, path+".clusterIssuer"),
		wildcardSecretName: required(cm.WildcardSecretName, path+".wildcardSecretName"),
		ingressNamespace:   required(cm.IngressNamespace, path+".ingressNamespace"),
	}
}

type RedisConfigMarshall struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

func (rm *RedisConfigMarshall) trySeal(path string) *RedisConfig {
	return &RedisConfig{
		address:  required(rm.Address, path+".address"),
		password: rm.Password,
		db:       rm.DB,
	}
}

type BrokerConfigMarshall struct {
	URL      string `yaml:"url"`
	Prefetch int    `yaml:"prefetch,omitempty"`
}

func (bm *BrokerConfigMarshall) trySeal(path string) *BrokerConfig {
	prefetch := bm.Prefetch
	if prefetch == 0 {
		prefetch = 32
	}
	return &BrokerConfig{
		url:      required(bm.URL, path+".url"),
		prefetch: prefetch,
	}
}

type VaultConfigMarshall struct {
	Address string `yaml:"address"`
	Token   string `yaml:"token"`
	Mount   string `yaml:"mount,omitempty"`
}

func (vm *VaultConfigMarshall) trySeal(path string) *VaultConfig {
	mount := vm.Mount
	if mount == "" {
		mount = "secret"
	}
	return &VaultConfig{
		address: required(vm.Address, path+".address"),
		token:   required(vm.Token, path+".token"),
		mount:   mount,
	}
}

type PrometheusConfigMarshall struct {
	Address string `yaml:"address"`
}

func (pm *PrometheusConfigMarshall) trySeal(path string) *PrometheusConfig {
	return &PrometheusConfig{
		address: required(pm.Address, path+".address"),
	}
}

type LoopsConfigMarshall struct {
	Reconcile *ReconcileLoopConfigMarshall `yaml:"reconcile,omitempty"`
	Metrics   *MetricsLoopConfigMarshall   `yaml:"metrics,omitempty"`
	Accrual   *AccrualLoopConfigMarshall   `yaml:"accrual,omitempty"`
}

func (lm *LoopsConfigMarshall) trySeal(path string) *LoopsConfig {
	reconcile := lm.Reconcile
	if reconcile == nil {
		reconcile = &ReconcileLoopConfigMarshall{}
	}
	metrics := lm.Metrics
	if metrics == nil {
		metrics = &MetricsLoopConfigMarshall{}
	}
	accrual := lm.Accrual
	if accrual == nil {
		accrual = &AccrualLoopConfigMarshall{}
	}
	return &LoopsConfig{
		reconcile: reconcile.trySeal(path + ".reconcile"),
		metrics:   metrics.trySeal(path + ".metrics"),
		accrual:   accrual.trySeal(path + ".accrual"),
	}
}

type ReconcileLoopConfigMarshall struct {
	PageSize int    `yaml:"pageSize,omitempty"`
	Timeout  string `yaml:"timeout,omitempty"`
}

func (rm *ReconcileLoopConfigMarshall) trySeal(path string) *ReconcileLoopConfig {
	pageSize := rm.PageSize
	if pageSize == 0 {
		pageSize = 50
	}
	return &ReconcileLoopConfig{
		pageSize: pageSize,
		timeout:  duration(rm.Timeout, 30*time.Second, path+".timeout"),
	}
}

type MetricsLoopConfigMarshall struct {
	Interval  string `yaml:"interval,omitempty"`
	Retention int64  `yaml:"retention,omitempty"`
}

func (mm *MetricsLoopConfigMarshall) trySeal(path string) *MetricsLoopConfig {
	retention := mm.Retention
	if retention == 0 {
		retention = 60
	}
	return &MetricsLoopConfig{
		interval:  duration(mm.Interval, 10*time.Second, path+".interval"),
		retention: retention,
	}
}

type AccrualLoopConfigMarshall struct {
	PageSize int `yaml:"pageSize,omitempty"`
}

func (am *AccrualLoopConfigMarshall) trySeal(path string) *AccrualLoopConfig {
	pageSize := am.PageSize
	if pageSize == 0 {
		pageSize = 100
	}
	return &AccrualLoopConfig{pageSize: pageSize}
}

type BillingConfigMarshall struct {
	CpuPerCoreHour   float64 `yaml:"cpuPerCoreHour"`
	MemoryPerGibHour float64 `yaml:"memoryPerGibHour"`
}

func (bm *BillingConfigMarshall) trySeal(path string) *BillingConfig {
	return &BillingConfig{
		cpuPerCoreHour:   required(bm.CpuPerCoreHour, path+".cpuPerCoreHour"),
		memoryPerGibHour: required(bm.MemoryPerGibHour, path+".memoryPerGibHour"),
	}
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}

func duration(v string, fallback time.Duration, path string) time.Duration {
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s can not be parsed: %w", path, err))
	}
	return d
}
