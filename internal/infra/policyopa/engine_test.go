package policyopa

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"agora/internal/domain"
)

func TestEngine_DefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	cases := []struct {
		name  string
		input domain.DomainAccessInput
		want  bool
	}{
		{
			name: "member of the domain working group",
			input: domain.DomainAccessInput{
				ParticipantID: "p-1",
				Domain:        "ikp",
				TrustTier:     "blade",
				WorkingGroups: []string{"cs", "ikp"},
			},
			want: true,
		},
		{
			name: "non-member at low tier",
			input: domain.DomainAccessInput{
				ParticipantID: "p-1",
				Domain:        "ikp",
				TrustTier:     "light",
				WorkingGroups: []string{"cs"},
			},
			want: false,
		},
		{
			name: "heavy tier bypasses membership",
			input: domain.DomainAccessInput{
				ParticipantID: "p-1",
				Domain:        "ikp",
				TrustTier:     "heavy",
				WorkingGroups: nil,
			},
			want: true,
		},
		{
			name: "dragon tier bypasses membership",
			input: domain.DomainAccessInput{
				ParticipantID: "p-1",
				Domain:        "ikp",
				TrustTier:     "dragon",
				WorkingGroups: []string{},
			},
			want: true,
		},
		{
			name: "unknown tier with no membership",
			input: domain.DomainAccessInput{
				ParticipantID: "p-1",
				Domain:        "ikp",
				TrustTier:     "celebrity",
				WorkingGroups: []string{"cs"},
			},
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.Allow(ctx, tc.input)
			if err != nil {
				t.Fatalf("allow: %v", err)
			}
			if got != tc.want {
				t.Fatalf("allow = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEngine_FromPath(t *testing.T) {
	ctx := context.Background()
	policy := `package agora.access

default allow = false

allow {
	input.participant_id == "p-special"
}
`
	path := filepath.Join(t.TempDir(), "access.rego")
	if err := os.WriteFile(path, []byte(policy), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	engine, err := NewEngineFromPath(ctx, path)
	if err != nil {
		t.Fatalf("new engine from path: %v", err)
	}

	allowed, err := engine.Allow(ctx, domain.DomainAccessInput{ParticipantID: "p-special", Domain: "ikp"})
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !allowed {
		t.Fatal("operator policy should allow p-special")
	}
	allowed, err = engine.Allow(ctx, domain.DomainAccessInput{ParticipantID: "p-other", Domain: "ikp"})
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatal("operator policy should deny p-other")
	}
}

func TestEngine_FromPath_MissingFile(t *testing.T) {
	if _, err := NewEngineFromPath(context.Background(), filepath.Join(t.TempDir(), "nope.rego")); err == nil {
		t.Fatal("expected error for missing policy file")
	}
}
