package fixers_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/desgate/internal/config"
	"github.com/smykla-skalski/desgate/internal/doctor"
	configcheck "github.com/smykla-skalski/desgate/internal/doctor/checkers/config"
	"github.com/smykla-skalski/desgate/internal/doctor/checkers/hook"
	"github.com/smykla-skalski/desgate/internal/doctor/checkers/storage"
	"github.com/smykla-skalski/desgate/internal/doctor/fixers"
	"github.com/smykla-skalski/desgate/internal/doctor/settings"
	"github.com/smykla-skalski/desgate/internal/opencode"
	pkgconfig "github.com/smykla-skalski/desgate/pkg/config"
	"github.com/smykla-skalski/desgate/pkg/logger"
)

var _ = Describe("AtomicWriteFile", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("creates parents and new files with 0600", func() {
		path := filepath.Join(dir, "a", "b.json")
		Expect(fixers.AtomicWriteFile(path, []byte("x"), false)).To(Succeed())

		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
	})

	It("keeps a backup of the previous content", func() {
		path := filepath.Join(dir, "settings.json")
		Expect(os.WriteFile(path, []byte("old"), 0o644)).To(Succeed())

		Expect(fixers.AtomicWriteFile(path, []byte("new"), true)).To(Succeed())

		backups, err := filepath.Glob(path + ".desgate-*.bak")
		Expect(err).NotTo(HaveOccurred())
		Expect(backups).To(HaveLen(1))
		Expect(os.ReadFile(backups[0])).To(Equal([]byte("old")))
		Expect(os.ReadFile(path)).To(Equal([]byte("new")))
	})
})

var _ = Describe("InstallHookFixer", func() {
	var (
		path  string
		fixer *fixers.InstallHookFixer
	)

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), ".claude", "settings.json")
		fixer = fixers.NewInstallHookFixer(path, "/usr/local/bin/desgate", "desgate", logger.NewNoOpLogger())
	})

	It("handles install_hook failures", func() {
		Expect(fixer.CanFix(doctor.FailError("x", "y").WithFixID(hook.FixInstallHook))).To(BeTrue())
		Expect(fixer.CanFix(doctor.Pass("x", "y").WithFixID(hook.FixInstallHook))).To(BeFalse())
		Expect(fixer.CanFix(doctor.FailError("x", "y"))).To(BeFalse())
	})

	It("creates the settings file when missing", func() {
		Expect(fixer.Fix(context.Background())).To(Succeed())

		parsed, err := settings.NewSettingsParser(path).Parse()
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed.MissingHooks("desgate")).To(BeEmpty())
	})

	It("preserves unrelated keys", func() {
		Expect(os.MkdirAll(filepath.Dir(path), 0o700)).To(Succeed())
		Expect(os.WriteFile(path, []byte(`{"model":"opus","hooks":{}}`), 0o600)).To(Succeed())

		Expect(fixer.Fix(context.Background())).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"model": "opus"`))
		Expect(string(data)).To(ContainSubstring("/usr/local/bin/desgate hook claude SubagentStop"))
	})

	It("refuses to overwrite invalid JSON", func() {
		Expect(os.MkdirAll(filepath.Dir(path), 0o700)).To(Succeed())
		Expect(os.WriteFile(path, []byte("{"), 0o600)).To(Succeed())

		Expect(fixer.Fix(context.Background())).To(MatchError(ContainSubstring("failed to parse settings")))
	})
})

var _ = Describe("InstallPluginFixer", func() {
	var pluginDir string

	BeforeEach(func() {
		pluginDir = filepath.Join(GinkgoT().TempDir(), ".config", "opencode", "plugins")
	})

	newFixer := func(validator *pkgconfig.ValidatorConfig) *fixers.InstallPluginFixer {
		return fixers.NewInstallPluginFixer(pluginDir, "/usr/local/bin/desgate", validator, logger.NewNoOpLogger())
	}

	It("handles install_opencode_plugin failures", func() {
		fixer := newFixer(nil)
		Expect(fixer.CanFix(doctor.FailWarning("x", "y").WithFixID(hook.FixInstallPlugin))).To(BeTrue())
		Expect(fixer.CanFix(doctor.FailWarning("x", "y").WithFixID(hook.FixInstallHook))).To(BeFalse())
	})

	It("writes a plugin the checker accepts", func() {
		Expect(newFixer(nil).Fix(context.Background())).To(Succeed())

		src, err := os.ReadFile(filepath.Join(pluginDir, opencode.PluginFileName))
		Expect(err).NotTo(HaveOccurred())
		Expect(opencode.CallsDesgate(src, "desgate")).To(BeTrue())
		Expect(filepath.Join(pluginDir, opencode.EnvFileName)).NotTo(BeAnExistingFile())

		result := hook.NewPluginChecker(pluginDir, "desgate").Check(context.Background())
		Expect(result.IsPassed()).To(BeTrue())
	})

	It("writes the env file when a validator root is configured", func() {
		validator := &pkgconfig.ValidatorConfig{Root: "/opt/nwave", Executable: "/opt/nwave/.venv/bin/python"}
		Expect(newFixer(validator).Fix(context.Background())).To(Succeed())

		env, err := opencode.ReadEnv(filepath.Join(pluginDir, opencode.EnvFileName))
		Expect(err).NotTo(HaveOccurred())
		Expect(env.Root).To(Equal("/opt/nwave"))
		Expect(env.Python).To(Equal("/opt/nwave/.venv/bin/python"))
	})

	It("keeps a backup of a plugin it replaces", func() {
		path := filepath.Join(pluginDir, opencode.PluginFileName)
		Expect(os.MkdirAll(pluginDir, 0o700)).To(Succeed())
		Expect(os.WriteFile(path, []byte("// old"), 0o600)).To(Succeed())

		Expect(newFixer(nil).Fix(context.Background())).To(Succeed())

		backups, err := filepath.Glob(path + ".desgate-*.bak")
		Expect(err).NotTo(HaveOccurred())
		Expect(backups).To(HaveLen(1))
	})
})

var _ = Describe("PermissionsFixer", func() {
	It("restricts world-writable files and skips missing ones", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "config.toml")
		Expect(os.WriteFile(path, nil, 0o600)).To(Succeed())
		Expect(os.Chmod(path, 0o666)).To(Succeed())

		fixer := fixers.NewPermissionsFixer(
			[]string{filepath.Join(dir, "missing.toml"), path},
			logger.NewNoOpLogger(),
		)
		Expect(fixer.ID()).To(Equal(configcheck.FixConfigPermissions))
		Expect(fixer.Fix(context.Background())).To(Succeed())

		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
	})
})

var _ = Describe("DirsFixer", func() {
	It("creates every directory with 0700", func() {
		dir := GinkgoT().TempDir()
		a := filepath.Join(dir, "logs")
		b := filepath.Join(dir, "state", "sessions")

		fixer := fixers.NewDirsFixer(a, b)
		Expect(fixer.CanFix(doctor.FailWarning("x", "y").WithFixID(storage.FixCreateDirs))).To(BeTrue())
		Expect(fixer.Fix(context.Background())).To(Succeed())

		for _, d := range []string{a, b} {
			info, err := os.Stat(d)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o700)))
		}
	})
})

var _ = Describe("ConfigFixer", func() {
	It("writes defaults once", func() {
		home := GinkgoT().TempDir()
		writer := config.NewWriterWithDirs(home, GinkgoT().TempDir())
		fixer := fixers.NewConfigFixer(writer)

		Expect(fixer.Fix(context.Background())).To(Succeed())
		Expect(writer.Exists(config.ScopeGlobal)).To(BeTrue())

		Expect(os.WriteFile(writer.Path(config.ScopeGlobal), []byte("# mine\n"), 0o600)).To(Succeed())
		Expect(fixer.Fix(context.Background())).To(Succeed())
		Expect(os.ReadFile(writer.Path(config.ScopeGlobal))).To(Equal([]byte("# mine\n")))
	})
})
