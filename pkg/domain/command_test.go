package domain_test

import (
	"testing"

	"github.com/poddle/poddle/pkg/domain"
	"github.com/poddle/poddle/pkg/utils/pointer"
)

func TestParseEnvelope(t *testing.T) {
	type When struct {
		body string
	}
	type Then struct {
		wantType domain.CommandType
		wantId   string
		invalid  bool
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			env, err := domain.ParseEnvelope([]byte(when.body))
			if then.invalid {
				if !domain.AsInvalid(err) {
					t.Fatalf("expected ErrInvalid, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if env.Type != then.wantType {
				t.Errorf("type: got %s, want %s", env.Type, then.wantType)
			}
			if env.DeploymentId != then.wantId {
				t.Errorf("deployment id: got %s, want %s", env.DeploymentId, then.wantId)
			}
		}
	}

	t.Run("a well-formed create envelope parses", theory(
		When{body: `{"type":"create","deploymentId":"d-1","payload":{}}`},
		Then{wantType: domain.CommandCreate, wantId: "d-1"},
	))
	t.Run("a suspend envelope needs no payload", theory(
		When{body: `{"type":"suspend","deploymentId":"d-2"}`},
		Then{wantType: domain.CommandSuspend, wantId: "d-2"},
	))
	t.Run("broken json is invalid", theory(
		When{body: `{"type":"create",`},
		Then{invalid: true},
	))
	t.Run("an unknown command type is invalid", theory(
		When{body: `{"type":"reboot","deploymentId":"d-3"}`},
		Then{invalid: true},
	))
	t.Run("a missing deployment id is invalid", theory(
		When{body: `{"type":"delete"}`},
		Then{invalid: true},
	))
}

func TestCreatePayloadValidate(t *testing.T) {
	valid := func() domain.CreatePayload {
		return domain.CreatePayload{
			UserId:    "7f1f35a4-0000-0000-0000-000000000001",
			ProjectId: "7f1f35a4-0000-0000-0000-000000000002",
			Name:      "my-app",
			Image:     "ghcr.io/acme/my-app:1.2.3",
			Port:      8080,
			Subdomain: "my-app",
		}
	}

	type When struct {
		mutate func(*domain.CreatePayload)
	}
	type Then struct {
		invalid bool
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			payload := valid()
			if when.mutate != nil {
				when.mutate(&payload)
			}
			err := payload.Validate()
			if then.invalid && !domain.AsInvalid(err) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
			if !then.invalid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}
	}

	t.Run("a complete payload passes", theory(When{}, Then{}))
	t.Run("replicas within range pass", theory(
		When{mutate: func(p *domain.CreatePayload) { p.Replicas = pointer.Ref[int32](25) }},
		Then{},
	))
	t.Run("zero replicas are rejected on create", theory(
		When{mutate: func(p *domain.CreatePayload) { p.Replicas = pointer.Ref[int32](0) }},
		Then{invalid: true},
	))
	t.Run("too many replicas are rejected", theory(
		When{mutate: func(p *domain.CreatePayload) { p.Replicas = pointer.Ref[int32](26) }},
		Then{invalid: true},
	))
	t.Run("an unparsable image reference is rejected", theory(
		When{mutate: func(p *domain.CreatePayload) { p.Image = "UPPER CASE!!" }},
		Then{invalid: true},
	))
	t.Run("port zero is rejected", theory(
		When{mutate: func(p *domain.CreatePayload) { p.Port = 0 }},
		Then{invalid: true},
	))
	t.Run("port above 65535 is rejected", theory(
		When{mutate: func(p *domain.CreatePayload) { p.Port = 65536 }},
		Then{invalid: true},
	))
	t.Run("a subdomain with dots is rejected", theory(
		When{mutate: func(p *domain.CreatePayload) { p.Subdomain = "a.b" }},
		Then{invalid: true},
	))
	t.Run("a custom domain with a tld passes", theory(
		When{mutate: func(p *domain.CreatePayload) { p.Domain = "shop.example.com" }},
		Then{},
	))
	t.Run("a bare label is not a custom domain", theory(
		When{mutate: func(p *domain.CreatePayload) { p.Domain = "localhost" }},
		Then{invalid: true},
	))
	t.Run("a missing user id is rejected", theory(
		When{mutate: func(p *domain.CreatePayload) { p.UserId = "" }},
		Then{invalid: true},
	))
}

func TestScalePayloadValidate(t *testing.T) {
	for _, n := range []int32{0, 1, 25} {
		if err := (domain.ScalePayload{Replicas: n}).Validate(); err != nil {
			t.Errorf("replicas=%d: unexpected error: %v", n, err)
		}
	}
	for _, n := range []int32{-1, 26, 100} {
		if err := (domain.ScalePayload{Replicas: n}).Validate(); !domain.AsInvalid(err) {
			t.Errorf("replicas=%d: expected ErrInvalid, got %v", n, err)
		}
	}
}

func TestResourcePayloadMerge(t *testing.T) {
	base := domain.DefaultResourceSpec()

	t.Run("nil payload keeps the base", func(t *testing.T) {
		var p *domain.ResourcePayload
		if got := p.Merge(base); got != base {
			t.Errorf("got %+v, want %+v", got, base)
		}
	})

	t.Run("set fields override, omitted fields survive", func(t *testing.T) {
		p := &domain.ResourcePayload{
			CpuLimitMillicores:   pointer.Ref[int64](1000),
			MemoryLimitMebibytes: pointer.Ref[int64](2048),
		}
		got := p.Merge(base)
		if got.CpuLimitMillicores != 1000 || got.MemoryLimitMebibytes != 2048 {
			t.Errorf("overrides not applied: %+v", got)
		}
		if got.CpuRequestMillicores != base.CpuRequestMillicores ||
			got.MemoryRequestMebibytes != base.MemoryRequestMebibytes {
			t.Errorf("omitted fields changed: %+v", got)
		}
	})
}
