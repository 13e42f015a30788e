package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/beatpage/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars(t)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("BEATPAGE_ADDR", ":9000")
			t.Setenv("BEATPAGE_STORE_DRIVER", "redis")
			t.Setenv("BEATPAGE_REDIS_ADDR", "cache:6379")
			t.Setenv("BEATPAGE_REDIS_DB", "2")
			t.Setenv("BEATPAGE_MINIO_USE_SSL", "true")
			t.Setenv("BEATPAGE_ADD_POLICY", "confirmed")
			t.Setenv("BEATPAGE_MAX_PAGES", "50")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9000")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "redis")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "cache:6379")
				convey.So(cfg.RedisDB, convey.ShouldEqual, 2)
				convey.So(cfg.MinioUseSSL, convey.ShouldBeTrue)
				convey.So(cfg.AddPolicy, convey.ShouldEqual, "confirmed")
				convey.So(cfg.MaxPages, convey.ShouldEqual, 50)
				convey.So(cfg.RedisPrefix, convey.ShouldEqual, "beatpage")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			path := writeTempFile(t, "config.yaml", `
addr: ":7070"
store_driver: mysql
mysql_dsn: "u:p@tcp(db:3306)/beatpage?parseTime=true"
placeholder_image: "https://cdn.example/cover.png"
`)
			t.Setenv(config.EnvConfig, path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "mysql")
				convey.So(cfg.PlaceholderImage, convey.ShouldEqual, "https://cdn.example/cover.png")
			})

			convey.Convey("And env vars should win over the file", func() {
				t.Setenv("BEATPAGE_ADDR", ":6060")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "mysql")
			})
		})

		convey.Convey("When a .env file is present", func() {
			path := writeTempFile(t, ".env", "BEATPAGE_LOG_LEVEL=debug\nBEATPAGE_BLOB_DRIVER=memory\n")
			t.Setenv(config.EnvDotFile, path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then its values are picked up", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.BlobDriver, convey.ShouldEqual, "memory")
			})

			_ = os.Unsetenv("BEATPAGE_LOG_LEVEL")
			_ = os.Unsetenv("BEATPAGE_BLOB_DRIVER")
		})

		convey.Convey("When the config file does not exist", func() {
			t.Setenv(config.EnvConfig, "/non/existent/file.yaml")

			_, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the address is emptied", func() {
			t.Setenv("BEATPAGE_ADDR", "")

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a number is malformed", func() {
			t.Setenv("BEATPAGE_REDIS_DB", "not_a_number")

			_, err := config.Load(ctx)

			convey.Convey("Then decoding fails", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars(t *testing.T) {
	for _, key := range []string{
		config.EnvConfig, config.EnvDotFile,
		"BEATPAGE_ADDR", "BEATPAGE_LOG_LEVEL", "BEATPAGE_STORE_DRIVER",
		"BEATPAGE_REDIS_ADDR", "BEATPAGE_REDIS_DB", "BEATPAGE_BLOB_DRIVER",
		"BEATPAGE_MINIO_USE_SSL", "BEATPAGE_ADD_POLICY", "BEATPAGE_MAX_PAGES",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
	// No .env from the working directory leaks into these tests.
	t.Setenv(config.EnvDotFile, filepath.Join(t.TempDir(), "missing.env"))
}

func writeTempFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
