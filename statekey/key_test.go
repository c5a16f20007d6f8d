package statekey

import (
	"errors"
	"strings"
	"testing"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		attrs     []string
		want      string
		wantErr   bool
	}{
		{"single attribute", "org.example.plan", []string{"Alice"}, "org.example.plan:Alice", false},
		{"two attributes", "org.example.plan", []string{"Alice", "P001"}, "org.example.plan:Alice:P001", false},
		{"four attributes", "org.example.usage", []string{"A", "P001", "B", "M1"}, "org.example.usage:A:P001:B:M1", false},
		{"no attributes", "org.example.plan", nil, "", true},
		{"empty namespace", "", []string{"Alice"}, "", true},
		{"empty attribute", "org.example.plan", []string{""}, "", true},
		{"delimiter in attribute", "org.example.plan", []string{"Ali:ce"}, "", true},
		{"delimiter in namespace", "org:example", []string{"Alice"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Make(tt.namespace, tt.attrs...)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Make() = %q, want error", got)
				}
				if !errors.Is(err, ErrInvalidKeyComponent) {
					t.Errorf("Make() error = %v, want ErrInvalidKeyComponent", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Make() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Make() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrefix(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		attrs     []string
		want      string
		wantErr   bool
	}{
		{"no attributes covers namespace", "org.example.plan", nil, "org.example.plan:", false},
		{"one attribute", "org.example.plan", []string{"Alice"}, "org.example.plan:Alice:", false},
		{"empty attribute", "org.example.plan", []string{""}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Prefix(tt.namespace, tt.attrs...)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Prefix() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Prefix() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Prefix() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrefixMatchesPerComponent(t *testing.T) {
	// A prefix on attribute "Alice" must not match keys for "Alice2":
	// the trailing delimiter makes matching per component.
	prefix, err := Prefix("ns", "Alice")
	if err != nil {
		t.Fatal(err)
	}

	match, _ := Make("ns", "Alice", "P001")
	noMatch, _ := Make("ns", "Alice2", "P001")

	if !strings.HasPrefix(match, prefix) {
		t.Errorf("key %q should match prefix %q", match, prefix)
	}
	if strings.HasPrefix(noMatch, prefix) {
		t.Errorf("key %q should not match prefix %q", noMatch, prefix)
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		wantNS    string
		wantAttrs []string
		wantErr   bool
	}{
		{"two attributes", "ns:a:b", "ns", []string{"a", "b"}, false},
		{"one attribute", "ns:a", "ns", []string{"a"}, false},
		{"no attributes", "ns", "", nil, true},
		{"empty component", "ns::b", "", nil, true},
		{"empty key", "", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns, attrs, err := Split(tt.key)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Split() = %q %v, want error", ns, attrs)
				}
				return
			}
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if ns != tt.wantNS {
				t.Errorf("namespace = %q, want %q", ns, tt.wantNS)
			}
			if len(attrs) != len(tt.wantAttrs) {
				t.Fatalf("attrs = %v, want %v", attrs, tt.wantAttrs)
			}
			for i := range attrs {
				if attrs[i] != tt.wantAttrs[i] {
					t.Errorf("attrs[%d] = %q, want %q", i, attrs[i], tt.wantAttrs[i])
				}
			}
		})
	}
}

func TestSplitRoundTrip(t *testing.T) {
	key, err := Make("org.example.sub", "BobCorp", "P001", "AliceGym")
	if err != nil {
		t.Fatal(err)
	}
	ns, attrs, err := Split(key)
	if err != nil {
		t.Fatal(err)
	}
	if ns != "org.example.sub" {
		t.Errorf("namespace = %q", ns)
	}
	if len(attrs) != 3 || attrs[0] != "BobCorp" || attrs[1] != "P001" || attrs[2] != "AliceGym" {
		t.Errorf("attrs = %v", attrs)
	}
}
