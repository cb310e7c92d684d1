package updater

import (
	"testing"
	"time"

	"github.com/saba-chan/saba-core/internal/domain"
	"github.com/saba-chan/saba-core/internal/infra/githubrelease"
)

func release(tag string, published time.Time, draft, prerelease bool, assets ...githubrelease.Asset) githubrelease.Release {
	return githubrelease.Release{TagName: tag, PublishedAt: published, Draft: draft, Prerelease: prerelease, Assets: assets}
}

func TestAuthoritativeReleaseSkipsDraftsAndPrereleases(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	releases := []githubrelease.Release{
		release("v3.0.0", base.Add(3*time.Hour), false, true, githubrelease.Asset{Name: "manifest.json"}),
		release("v2.1.0-draft", base.Add(2*time.Hour), true, false, githubrelease.Asset{Name: "manifest.json"}),
		release("v2.0.0", base.Add(time.Hour), false, false, githubrelease.Asset{Name: "manifest.json"}),
		release("v1.0.0", base, false, false, githubrelease.Asset{Name: "manifest.json"}),
	}

	rel, err := AuthoritativeRelease(releases, false)
	if err != nil {
		t.Fatalf("AuthoritativeRelease: %v", err)
	}
	if rel.TagName != "v2.0.0" {
		t.Fatalf("got %s, want v2.0.0 (draft and prerelease must be skipped)", rel.TagName)
	}
}

func TestAuthoritativeReleaseIncludesPrereleaseWhenRequested(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	releases := []githubrelease.Release{
		release("v3.0.0-beta", base.Add(time.Hour), false, true, githubrelease.Asset{Name: "manifest.json"}),
		release("v2.0.0", base, false, false, githubrelease.Asset{Name: "manifest.json"}),
	}

	rel, err := AuthoritativeRelease(releases, true)
	if err != nil {
		t.Fatalf("AuthoritativeRelease: %v", err)
	}
	if rel.TagName != "v3.0.0-beta" {
		t.Fatalf("got %s, want v3.0.0-beta", rel.TagName)
	}
}

func TestResolveComponentsWalksBackToSourceRelease(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	releases := []githubrelease.Release{
		release("v3.0.0", base.Add(2*time.Hour), false, false,
			githubrelease.Asset{Name: "manifest.json"},
			githubrelease.Asset{Name: "saba-core.zip", DownloadURL: "https://example/v3/core.zip"},
		),
		release("v2.0.0", base.Add(time.Hour), false, false,
			githubrelease.Asset{Name: "module-minecraft.zip", DownloadURL: "https://example/v2/minecraft.zip"},
		),
		release("v1.0.0", base, false, false,
			githubrelease.Asset{Name: "module-minecraft.zip", DownloadURL: "https://example/v1/minecraft.zip"},
		),
	}

	manifest := domain.ReleaseManifest{
		ReleaseVersion: "v3.0.0",
		Components: map[string]domain.ManifestComponent{
			"core_daemon":       {Version: "3.0.0", Asset: "saba-core.zip"},
			"module-minecraft":  {Version: "2.5.0", Asset: "module-minecraft.zip"},
			"module-unreleased": {Version: "1.0.0", Asset: "module-unreleased.zip"},
		},
	}

	resolved := ResolveComponentsAcrossReleases(manifest, releases, false)

	core := resolved["core_daemon"]
	if core.SourceRelease != "v3.0.0" || core.DownloadURL != "https://example/v3/core.zip" {
		t.Fatalf("core_daemon resolution wrong: %+v", core)
	}

	mc := resolved["module-minecraft"]
	if mc.SourceRelease != "v2.0.0" || mc.DownloadURL != "https://example/v2/minecraft.zip" {
		t.Fatalf("module-minecraft should resolve from the newest release carrying its asset (v2.0.0), got %+v", mc)
	}

	unreleased := resolved["module-unreleased"]
	if !unreleased.IsUnresolved() {
		t.Fatalf("module-unreleased should be unresolved, got %+v", unreleased)
	}
}

func TestResolveComponentsSkipsPrereleaseAssetsUnlessIncluded(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	releases := []githubrelease.Release{
		release("v3.0.0-beta", base.Add(2*time.Hour), false, true,
			githubrelease.Asset{Name: "saba-core.zip", DownloadURL: "https://example/v3-beta/core.zip"},
		),
		release("v2.0.0", base.Add(time.Hour), false, false,
			githubrelease.Asset{Name: "saba-core.zip", DownloadURL: "https://example/v2/core.zip"},
		),
	}
	manifest := domain.ReleaseManifest{
		Components: map[string]domain.ManifestComponent{
			"core_daemon": {Version: "2.0.0", Asset: "saba-core.zip"},
		},
	}

	stable := ResolveComponentsAcrossReleases(manifest, releases, false)
	if got := stable["core_daemon"].SourceRelease; got != "v2.0.0" {
		t.Fatalf("stable channel resolved from %s, want v2.0.0 (prerelease must be skipped)", got)
	}

	withPrerelease := ResolveComponentsAcrossReleases(manifest, releases, true)
	if got := withPrerelease["core_daemon"].SourceRelease; got != "v3.0.0-beta" {
		t.Fatalf("includePrerelease=true resolved from %s, want v3.0.0-beta", got)
	}
}
