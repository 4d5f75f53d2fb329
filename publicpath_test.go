package federa

import (
	"errors"
	"testing"
)

func TestPathStatic(t *testing.T) {
	h := &Handle{Name: "app1", strategy: PathStatic("https://cdn.example.com/app1")}

	if err := resolvePublicPath(h, NewGlobals()); err != nil {
		t.Fatalf("resolvePublicPath error: %v", err)
	}
	if got := h.BasePath(); got != "https://cdn.example.com/app1/" {
		t.Errorf("BasePath = %q, want trailing-slash base", got)
	}
}

func TestPathStaticEmpty(t *testing.T) {
	h := &Handle{Name: "app1", strategy: PathStatic("")}

	err := resolvePublicPath(h, NewGlobals())
	var perr *PublicPathError
	if !errors.As(err, &perr) {
		t.Fatalf("error is %T, want *PublicPathError", err)
	}
	if perr.Container != "app1" {
		t.Errorf("PublicPathError.Container = %q, want app1", perr.Container)
	}
}

func TestPathBinding(t *testing.T) {
	g := NewGlobals()
	g.Bind("cdn_base", "https://cdn.example.com/assets")

	h := &Handle{Name: "app1", strategy: PathBinding("cdn_base")}
	if err := resolvePublicPath(h, g); err != nil {
		t.Fatalf("resolvePublicPath error: %v", err)
	}
	if got := h.BasePath(); got != "https://cdn.example.com/assets/" {
		t.Errorf("BasePath = %q, want binding value with trailing slash", got)
	}
}

func TestPathBindingMissing(t *testing.T) {
	h := &Handle{Name: "app1", strategy: PathBinding("cdn_base")}

	err := resolvePublicPath(h, NewGlobals())
	if !errors.Is(err, ErrBindingNotFound) {
		t.Fatalf("error = %v, want ErrBindingNotFound", err)
	}

	var perr *PublicPathError
	if !errors.As(err, &perr) {
		t.Fatalf("error is %T, want *PublicPathError", err)
	}
}

func TestPathBindingNotAString(t *testing.T) {
	g := NewGlobals()
	g.Bind("cdn_base", 42)

	h := &Handle{Name: "app1", strategy: PathBinding("cdn_base")}
	err := resolvePublicPath(h, g)
	var perr *PublicPathError
	if !errors.As(err, &perr) {
		t.Fatalf("error is %T, want *PublicPathError", err)
	}
}

func TestPathFromEntry(t *testing.T) {
	tests := []struct {
		entryURL string
		want     string
	}{
		{"https://cdn.example.com/app1/entry.json", "https://cdn.example.com/app1/"},
		{"https://cdn.example.com/entry.json", "https://cdn.example.com/"},
		{"https://cdn.example.com/a/b/entry.json?v=3", "https://cdn.example.com/a/b/"},
	}

	for _, tt := range tests {
		t.Run(tt.entryURL, func(t *testing.T) {
			h := &Handle{Name: "app1", strategy: PathFromEntry(), entryURL: tt.entryURL}
			if err := resolvePublicPath(h, NewGlobals()); err != nil {
				t.Fatalf("resolvePublicPath error: %v", err)
			}
			if got := h.BasePath(); got != tt.want {
				t.Errorf("BasePath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPathFromEntryNoURL(t *testing.T) {
	h := &Handle{Name: "app1", strategy: PathFromEntry()}

	err := resolvePublicPath(h, NewGlobals())
	var perr *PublicPathError
	if !errors.As(err, &perr) {
		t.Fatalf("error is %T, want *PublicPathError", err)
	}
}

func TestResolvePublicPathExactlyOnce(t *testing.T) {
	h := &Handle{Name: "app1", strategy: PathStatic("https://cdn.example.com/app1/")}
	g := NewGlobals()

	if err := resolvePublicPath(h, g); err != nil {
		t.Fatalf("first resolve error: %v", err)
	}
	if err := resolvePublicPath(h, g); !errors.Is(err, ErrPublicPathSet) {
		t.Fatalf("second resolve error = %v, want ErrPublicPathSet", err)
	}
	if got := h.BasePath(); got != "https://cdn.example.com/app1/" {
		t.Errorf("BasePath changed after rejected second resolve: %q", got)
	}
}

func TestResolvePublicPathNilStrategy(t *testing.T) {
	h := &Handle{Name: "app1"}

	if err := resolvePublicPath(h, NewGlobals()); err != nil {
		t.Fatalf("resolvePublicPath error: %v", err)
	}
	if got := h.BasePath(); got != "" {
		t.Errorf("BasePath = %q, want empty for nil strategy", got)
	}
}

func TestPathBindingReadCount(t *testing.T) {
	g := NewGlobals()
	g.Bind("cdn_base", "https://cdn.example.com/")

	h := &Handle{Name: "app1", strategy: PathBinding("cdn_base")}
	if err := resolvePublicPath(h, g); err != nil {
		t.Fatalf("resolvePublicPath error: %v", err)
	}
	if got := g.readCount("cdn_base"); got != 1 {
		t.Errorf("binding read %d times during resolution, want 1", got)
	}
}
