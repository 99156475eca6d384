package manpage

import (
	"strings"
	"testing"
)

func TestGenerateContainsRequiredSections(t *testing.T) {
	page := Generate("1.2.0", "abc1234", "2026-08-25")

	sections := []string{
		".TH SWAPWATCH 1",
		".SH NAME",
		".SH SYNOPSIS",
		".SH DESCRIPTION",
		".SH OPTIONS",
		".SH KEY BINDINGS",
		".SH CONFIGURATION",
		".SH FILES",
		".SH EXAMPLES",
		".SH EXIT STATUS",
		".SH SEE ALSO",
		".SH VERSION",
	}
	for _, s := range sections {
		if !strings.Contains(page, s) {
			t.Errorf("man page missing section %q", s)
		}
	}
}

func TestGenerateIncludesBuildInfo(t *testing.T) {
	page := Generate("1.2.0", "abc1234", "2026-08-25")

	for _, want := range []string{"1.2.0", "abc1234", "2026-08-25"} {
		if !strings.Contains(page, want) {
			t.Errorf("man page missing build info %q", want)
		}
	}
}

func TestGenerateDocumentsAllFlags(t *testing.T) {
	page := Generate("dev", "dev", "unknown")

	for _, flag := range []string{"\\-config", "\\-headless", "\\-once", "\\-read\\-only", "\\-verbose", "\\-man", "\\-version"} {
		if !strings.Contains(page, flag) {
			t.Errorf("man page missing flag %q", flag)
		}
	}
}

func TestGenerateMentionsKeyFiles(t *testing.T) {
	page := Generate("dev", "dev", "unknown")

	if !strings.Contains(page, "drop_caches") {
		t.Error("man page should document the drop_caches interface")
	}
	if !strings.Contains(page, "config.yaml") {
		t.Error("man page should document the config file location")
	}
}
