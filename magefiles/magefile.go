package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	dataDir       = "./data/2026"
	migrationsDir = "./db/migrations"
	templDir      = "./internal/templates"
)

var binaries = map[string]string{
	"paystub-server": "./cmd/server",
	"calculate":      "./cmd/calculate",
	"taxdata":        "./cmd/taxdata",
}

// Dbup runs dbmate to apply db migrations. Falls back to `taxdata migrate`
// when dbmate is not installed.
func Dbup() error {
	if _, err := exec.LookPath("dbmate"); err != nil {
		fmt.Println(">> dbmate not found; using taxdata migrate")
		return sh.Run("go", "run", "./cmd/taxdata", "migrate", "-dir", migrationsDir)
	}
	fmt.Println(">> dbmate up")
	return sh.Run("dbmate", "--url", "sqlite:"+dbPath(), "--migrations-dir", migrationsDir, "up")
}

// Generate runs templ generate targeting the templates directory.
// Run it after any .templ change; the generated _templ.go files are committed.
func Generate() error {
	if _, err := exec.LookPath("templ"); err != nil {
		fmt.Println(">> templ not found; install with:")
		fmt.Println("   go install github.com/a-h/templ/cmd/templ@v0.3.1001")
		return err
	}
	fmt.Println(">> templ generate", templDir)
	return sh.Run("templ", "generate", templDir)
}

// Seed imports the shipped tax year into the database.
func Seed() error {
	mg.Deps(Dbup)
	fmt.Println(">> importing", dataDir)
	return sh.Run("go", "run", "./cmd/taxdata", "import",
		"-csv", dataDir+"/withholding.csv",
		"-yaml", dataDir+"/regulatory.yaml")
}

// Verify checks the seeded tax year for gaps, overlaps and duplicates.
func Verify() error {
	return sh.RunV("go", "run", "./cmd/taxdata", "verify", "-year", taxYear())
}

// Build generates templ output, tidies deps, then compiles every command to ./bin.
func Build() error {
	mg.Deps(Generate, Tidy)
	for name, pkg := range binaries {
		fmt.Println(">> building", name)
		if err := sh.Run("go", "build", "-o", "bin/"+name, pkg); err != nil {
			return err
		}
	}
	return nil
}

// Run builds then executes the server.
func Run() error {
	mg.Deps(Build)
	fmt.Println(">> Starting server on :" + port() + " ...")
	return sh.RunV("./bin/paystub-server")
}

// Dev generates templates, seeds the database and starts the server via go run.
// Use Watch instead for live template reloading.
func Dev() error {
	mg.Deps(Generate, Seed)
	fmt.Println(">> Dev mode: go run ./cmd/server ...")
	cmd := exec.Command("go", "run", "./cmd/server")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), "LOG_LEVEL=debug")
	return cmd.Run()
}

// Watch runs templ generate --watch in the background and the server in the
// foreground. Ctrl-C stops both.
func Watch() error {
	mg.Deps(Generate, Seed)

	fmt.Println(">> Starting templ watcher...")
	watcher := exec.Command("templ", "generate", "--watch", "-f", templDir)
	watcher.Stdout = os.Stdout
	watcher.Stderr = os.Stderr
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("start templ watcher: %w", err)
	}

	fmt.Println(">> Starting server (go run)...")
	server := exec.Command("go", "run", "./cmd/server")
	server.Stdout = os.Stdout
	server.Stderr = os.Stderr
	server.Env = append(os.Environ(), "LOG_LEVEL=debug")
	if err := server.Start(); err != nil {
		watcher.Process.Kill()
		return fmt.Errorf("start server: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n>> Shutting down...")
	server.Process.Kill()
	watcher.Process.Kill()
	return nil
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println(">> go mod tidy...")
	return sh.Run("go", "mod", "tidy")
}

// Test runs all unit tests.
func Test() error {
	fmt.Println(">> Running tests...")
	return sh.RunV("go", "test", "./...")
}

// Lint runs golangci-lint if available.
func Lint() error {
	if _, err := exec.LookPath("golangci-lint"); err != nil {
		fmt.Println(">> golangci-lint not found; skipping.")
		return nil
	}
	return sh.Run("golangci-lint", "run", "./...")
}

// Clean removes build artifacts and the local SQLite DB.
func Clean() error {
	fmt.Println(">> Cleaning...")
	os.RemoveAll("bin")
	return os.Remove(dbPath())
}

// Install builds and installs the binaries to $GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	return sh.Run("go", "install", "./cmd/...")
}

func dbPath() string { return getenv("DB_PATH", "paystub.db") }

func port() string { return getenv("PORT", "8080") }

func taxYear() string { return getenv("TAX_YEAR", "2026") }

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func init() {
	err := godotenv.Load()
	if err != nil {
		slog.Warn("error loading .env file", "err", err)
	}
}
