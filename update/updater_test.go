package update

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
)

// assetArch mirrors the goarch alias mapping used for asset matching.
func assetArch() string {
	if runtime.GOARCH == "amd64" {
		return "x86_64"
	}
	return runtime.GOARCH
}

func stubAPI(t *testing.T, tag string, assetNames ...string) *Updater {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/GoCodeAlone/capstan/releases/latest" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"tag_name": %q, "assets": [`, tag)
		for i, name := range assetNames {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"name": %q, "browser_download_url": "https://example.com/%s"}`, name, name)
		}
		fmt.Fprint(w, `]}`)
	}))
	t.Cleanup(srv.Close)

	u := New("v1.0.0")
	u.APIBase = srv.URL
	return u
}

func TestCheckForUpdate_NewerRelease(t *testing.T) {
	asset := fmt.Sprintf("capstan_%s_%s.tar.gz", runtime.GOOS, assetArch())
	u := stubAPI(t, "v1.1.0", asset, "capstan_checksums.txt")

	rel, err := u.CheckForUpdate()
	if err != nil {
		t.Fatalf("CheckForUpdate() error = %v", err)
	}
	if rel == nil {
		t.Fatal("CheckForUpdate() = nil, want a release")
	}
	if rel.Version != "v1.1.0" {
		t.Errorf("Version = %q, want %q", rel.Version, "v1.1.0")
	}
	if rel.URL != "https://example.com/"+asset {
		t.Errorf("URL = %q, want the platform asset", rel.URL)
	}
}

func TestCheckForUpdate_AlreadyCurrent(t *testing.T) {
	u := stubAPI(t, "v1.0.0", "capstan_any.tar.gz")

	rel, err := u.CheckForUpdate()
	if err != nil {
		t.Fatalf("CheckForUpdate() error = %v", err)
	}
	if rel != nil {
		t.Errorf("CheckForUpdate() = %+v, want nil for current version", rel)
	}
}

func TestCheckForUpdate_DevBuildNeverUpdates(t *testing.T) {
	asset := fmt.Sprintf("capstan_%s_%s.tar.gz", runtime.GOOS, assetArch())
	u := stubAPI(t, "v9.9.9", asset)
	u.CurrentVersion = "dev"

	rel, err := u.CheckForUpdate()
	if err != nil {
		t.Fatalf("CheckForUpdate() error = %v", err)
	}
	if rel != nil {
		t.Errorf("CheckForUpdate() = %+v, want nil for dev build", rel)
	}
}

func TestCheckForUpdate_NoPlatformAsset(t *testing.T) {
	u := stubAPI(t, "v2.0.0", "capstan_plan9_mips.tar.gz")

	if _, err := u.CheckForUpdate(); err == nil {
		t.Fatal("CheckForUpdate() expected error when no asset matches the platform")
	}
}
