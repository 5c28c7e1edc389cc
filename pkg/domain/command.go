package domain

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/google/go-containerregistry/pkg/name"
)

// Commands travel the command queue as a JSON envelope
// {"type": ..., "deploymentId": ..., "payload": ...}.

type CommandType string

const (
	CommandCreate  CommandType = "create"
	CommandUpdate  CommandType = "update"
	CommandDelete  CommandType = "delete"
	CommandScale   CommandType = "scale"
	CommandSuspend CommandType = "suspend"
	CommandResume  CommandType = "resume"
)

type CommandEnvelope struct {
	Type         CommandType     `json:"type"`
	DeploymentId string          `json:"deploymentId"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

type CreatePayload struct {
	UserId          string            `json:"userId"`
	ProjectId       string            `json:"projectId"`
	Name            string            `json:"name"`
	Image           string            `json:"image"`
	ImagePullSecret string            `json:"imagePullSecret,omitempty"`
	Port            int32             `json:"port"`
	Replicas        *int32            `json:"replicas,omitempty"`
	Resources       *ResourcePayload  `json:"resources,omitempty"`
	Env             []EnvVar          `json:"env,omitempty"`
	Secrets         map[string]string `json:"secrets,omitempty"`
	Labels          map[string]string `json:"labels,omitempty"`
	Subdomain       string            `json:"subdomain"`
	Domain          string            `json:"domain,omitempty"`
}

// UpdatePayload carries only the fields to change. Nil means "keep".
type UpdatePayload struct {
	Image           *string           `json:"image,omitempty"`
	ImagePullSecret *string           `json:"imagePullSecret,omitempty"`
	Port            *int32            `json:"port,omitempty"`
	Replicas        *int32            `json:"replicas,omitempty"`
	Resources       *ResourcePayload  `json:"resources,omitempty"`
	Env             []EnvVar          `json:"env,omitempty"`
	Secrets         map[string]string `json:"secrets,omitempty"`
	Labels          map[string]string `json:"labels,omitempty"`
	Domain          *string           `json:"domain,omitempty"`
}

type ScalePayload struct {
	Replicas int32 `json:"replicas"`
}

type ResourcePayload struct {
	CpuRequestMillicores   *int64 `json:"cpuRequest,omitempty"`
	CpuLimitMillicores     *int64 `json:"cpuLimit,omitempty"`
	MemoryRequestMebibytes *int64 `json:"memoryRequest,omitempty"`
	MemoryLimitMebibytes   *int64 `json:"memoryLimit,omitempty"`
}

// Merge fills omitted fields from base.
func (p *ResourcePayload) Merge(base ResourceSpec) ResourceSpec {
	if p == nil {
		return base
	}
	merged := base
	if p.CpuRequestMillicores != nil {
		merged.CpuRequestMillicores = *p.CpuRequestMillicores
	}
	if p.CpuLimitMillicores != nil {
		merged.CpuLimitMillicores = *p.CpuLimitMillicores
	}
	if p.MemoryRequestMebibytes != nil {
		merged.MemoryRequestMebibytes = *p.MemoryRequestMebibytes
	}
	if p.MemoryLimitMebibytes != nil {
		merged.MemoryLimitMebibytes = *p.MemoryLimitMebibytes
	}
	return merged
}

const (
	MinReplicas int32 = 0
	MaxReplicas int32 = 25
)

var (
	namePattern      = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
	subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
	domainPattern    = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)
)

// ParseEnvelope decodes the wire envelope. A body that is not valid JSON,
// or names no deployment id, is malformed and never retried.
func ParseEnvelope(body []byte) (CommandEnvelope, error) {
	var env CommandEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return CommandEnvelope{}, NewInvalidCausedBy("malformed command envelope", err)
	}
	switch env.Type {
	case CommandCreate, CommandUpdate, CommandDelete, CommandScale, CommandSuspend, CommandResume:
		// ok
	default:
		return CommandEnvelope{}, NewInvalid(fmt.Sprintf("unknown command type: %q", env.Type))
	}
	if env.DeploymentId == "" {
		return CommandEnvelope{}, NewInvalid("command names no deployment id")
	}
	return env, nil
}

// Validate checks a create payload. The returned error is ErrInvalid.
func (p CreatePayload) Validate() error {
	if p.UserId == "" {
		return NewInvalid("create: user id is required")
	}
	if p.ProjectId == "" {
		return NewInvalid("create: project id is required")
	}
	if !namePattern.MatchString(p.Name) {
		return NewInvalid(fmt.Sprintf("create: name %q is not a valid dns label", p.Name))
	}
	if err := validateImage(p.Image); err != nil {
		return err
	}
	if err := validatePort(p.Port); err != nil {
		return err
	}
	if p.Replicas != nil {
		if *p.Replicas < 1 || MaxReplicas < *p.Replicas {
			return NewInvalid(fmt.Sprintf(
				"create: replicas %d out of range [1, %d]", *p.Replicas, MaxReplicas,
			))
		}
	}
	if !subdomainPattern.MatchString(p.Subdomain) {
		return NewInvalid(fmt.Sprintf("create: subdomain %q is not a valid dns label", p.Subdomain))
	}
	if p.Domain != "" && !domainPattern.MatchString(p.Domain) {
		return NewInvalid(fmt.Sprintf("create: domain %q is not a valid domain name", p.Domain))
	}
	return nil
}

// Validate checks an update payload. The returned error is ErrInvalid.
func (p UpdatePayload) Validate() error {
	if p.Image != nil {
		if err := validateImage(*p.Image); err != nil {
			return err
		}
	}
	if p.Port != nil {
		if err := validatePort(*p.Port); err != nil {
			return err
		}
	}
	if p.Replicas != nil {
		if *p.Replicas < 1 || MaxReplicas < *p.Replicas {
			return NewInvalid(fmt.Sprintf(
				"update: replicas %d out of range [1, %d]", *p.Replicas, MaxReplicas,
			))
		}
	}
	if p.Domain != nil && *p.Domain != "" && !domainPattern.MatchString(*p.Domain) {
		return NewInvalid(fmt.Sprintf("update: domain %q is not a valid domain name", *p.Domain))
	}
	return nil
}

// Validate checks a scale payload. Scaling to zero is allowed; suspension
// also goes through zero.
func (p ScalePayload) Validate() error {
	if p.Replicas < MinReplicas || MaxReplicas < p.Replicas {
		return NewInvalid(fmt.Sprintf(
			"scale: replicas %d out of range [%d, %d]", p.Replicas, MinReplicas, MaxReplicas,
		))
	}
	return nil
}

func validateImage(image string) error {
	if _, err := name.ParseReference(image, name.StrictValidation); err != nil {
		return NewInvalidCausedBy(fmt.Sprintf("image reference %q is not valid", image), err)
	}
	return nil
}

func validatePort(port int32) error {
	if port < 1 || 65535 < port {
		return NewInvalid(fmt.Sprintf("port %d out of range [1, 65535]", port))
	}
	return nil
}
