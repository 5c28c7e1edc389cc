package backend

import (
	"time"

	"github.com/poddle/poddle/pkg/domain"
)

type BackendConfig struct {
	healthPort int32
	cluster    *ClusterConfig
	database   string
	redis      *RedisConfig
	broker     *BrokerConfig
	vault      *VaultConfig
	prometheus *PrometheusConfig
	loops      *LoopsConfig
	billing    *BillingConfig
}

// Port the health endpoint (/healthz, /readyz) listens on.
func (c *BackendConfig) HealthPort() int32 {
	return c.healthPort
}

func (c *BackendConfig) Cluster() *ClusterConfig {
	return c.cluster
}

// Connection string for the deployment and billing database.
func (c *BackendConfig) Database() string {
	return c.database
}

func (c *BackendConfig) Redis() *RedisConfig {
	return c.redis
}

func (c *BackendConfig) Broker() *BrokerConfig {
	return c.broker
}

func (c *BackendConfig) Vault() *VaultConfig {
	return c.vault
}

func (c *BackendConfig) Prometheus() *PrometheusConfig {
	return c.prometheus
}

func (c *BackendConfig) Loops() *LoopsConfig {
	return c.loops
}

func (c *BackendConfig) Billing() *BillingConfig {
	return c.billing
}

// Configuration of the cluster workloads are provisioned into.
//
// to get a `ClusterConfig` instance, use `Unmarshal` (it seals the
// mutable marshalling form).
type ClusterConfig struct {
	baseDomain         string
	clusterIssuer      string
	wildcardSecretName string
	ingressNamespace   string
}

// Base domain workload subdomains hang off of.
func (c *ClusterConfig) BaseDomain() string {
	return c.baseDomain
}

// cert-manager ClusterIssuer used for custom-domain certificates.
func (c *ClusterConfig) ClusterIssuer() string {
	return c.clusterIssuer
}

// TLS secret holding the wildcard certificate of the base domain.
func (c *ClusterConfig) WildcardSecretName() string {
	return c.wildcardSecretName
}

// Namespace the ingress controller (and the wildcard secret) lives in.
func (c *ClusterConfig) IngressNamespace() string {
	return c.ingressNamespace
}

type RedisConfig struct {
	address  string
	password string
	db       int
}

func (c *RedisConfig) Address() string {
	return c.address
}

func (c *RedisConfig) Password() string {
	return c.password
}

func (c *RedisConfig) DB() int {
	return c.db
}

type BrokerConfig struct {
	url      string
	prefetch int
}

func (c *BrokerConfig) URL() string {
	return c.url
}

// How many unacked deliveries one consumer may hold. default = 32
func (c *BrokerConfig) Prefetch() int {
	return c.prefetch
}

type VaultConfig struct {
	address string
	token   string
	mount   string
}

func (c *VaultConfig) Address() string {
	return c.address
}

func (c *VaultConfig) Token() string {
	return c.token
}

// KV v2 mount deployment secrets live under. default = "secret"
func (c *VaultConfig) Mount() string {
	return c.mount
}

type PrometheusConfig struct {
	address string
}

func (c *PrometheusConfig) Address() string {
	return c.address
}

type LoopsConfig struct {
	reconcile *ReconcileLoopConfig
	metrics   *MetricsLoopConfig
	accrual   *AccrualLoopConfig
}

func (c *LoopsConfig) Reconcile() *ReconcileLoopConfig {
	return c.reconcile
}

func (c *LoopsConfig) Metrics() *MetricsLoopConfig {
	return c.metrics
}

func (c *LoopsConfig) Accrual() *AccrualLoopConfig {
	return c.accrual
}

type ReconcileLoopConfig struct {
	pageSize int
	timeout  time.Duration
}

// How many deployments one reconcile pass takes on. default = 50
func (c *ReconcileLoopConfig) PageSize() int {
	return c.pageSize
}

// Hard deadline of one reconcile pass. default = 30s
func (c *ReconcileLoopConfig) Timeout() time.Duration {
	return c.timeout
}

type MetricsLoopConfig struct {
	interval  time.Duration
	retention int64
}

// Scrape cadence. default = 10s
func (c *MetricsLoopConfig) Interval() time.Duration {
	return c.interval
}

// How many snapshots the rolling cache window keeps. default = 60
func (c *MetricsLoopConfig) Retention() int64 {
	return c.retention
}

type AccrualLoopConfig struct {
	pageSize int
}

// How many deployments one page of the accrual sweep covers. default = 100
func (c *AccrualLoopConfig) PageSize() int {
	return c.pageSize
}

type BillingConfig struct {
	cpuPerCoreHour   float64
	memoryPerGibHour float64
}

// Rate translates the configured prices into the domain form.
func (c *BillingConfig) Rate() domain.BillingRate {
	return domain.BillingRate{
		CpuPerCoreHour:   c.cpuPerCoreHour,
		MemoryPerGibHour: c.memoryPerGibHour,
	}
}
