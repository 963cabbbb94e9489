package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	StoreBackendBolt   = "bolt"
	StoreBackendDynamo = "dynamodb"

	FilesBackendLocal = "local"
	FilesBackendS3    = "s3"
)

type Config struct {
	Server  ServerConf  `toml:"server"`
	Log     LogConf     `toml:"log"`
	Teacher TeacherConf `toml:"teacher"`
	Jwt     JwtConf     `toml:"jwt"`
	Store   StoreConf   `toml:"store"`
	Files   FilesConf   `toml:"files"`
	Grammar GrammarConf `toml:"grammar"`
}

type ServerConf struct {
	Addr           string   `toml:"addr"`
	Env            string   `toml:"env"`
	Version        string   `toml:"version"`
	CorsOrigins    []string `toml:"cors_origins"`
	MaxUploadBytes int64    `toml:"max_upload_bytes"`
}

type LogConf struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
}

type TeacherConf struct {
	Username       string `toml:"username"`
	Password       string `toml:"password"`        // hashed at start-up
	PasswordBcrypt string `toml:"password_bcrypt"` // takes precedence over password
}

type JwtConf struct {
	Key        string `toml:"key"`
	SecretName string `toml:"secret_name"` // AWS Secrets Manager id holding the key
	TokenTTL   string `toml:"token_ttl"`
}

type StoreConf struct {
	Backend     string `toml:"backend"`
	BoltPath    string `toml:"bolt_path"`
	DynamoTable string `toml:"dynamo_table"`
	Region      string `toml:"region"`
}

type FilesConf struct {
	Backend    string `toml:"backend"`
	UploadsDir string `toml:"uploads_dir"`
	S3Bucket   string `toml:"s3_bucket"`
	Region     string `toml:"region"`
}

type GrammarConf struct {
	Endpoint string `toml:"endpoint"`
	Language string `toml:"language"`
	Timeout  string `toml:"timeout"`
	CacheTTL string `toml:"cache_ttl"`
}

func Default() Config {
	return Config{
		Server: ServerConf{
			Addr:           ":5000",
			Env:            "dev",
			Version:        "dev",
			CorsOrigins:    []string{"http://localhost:3000"},
			MaxUploadBytes: 20 << 20,
		},
		Log: LogConf{
			Level:  "info",
			Format: "text",
		},
		Teacher: TeacherConf{
			Username: "teacher",
		},
		Jwt: JwtConf{
			TokenTTL: "24h",
		},
		Store: StoreConf{
			Backend:     StoreBackendBolt,
			BoltPath:    "data/submissions.db",
			DynamoTable: "IeltsSubmissions",
			Region:      "eu-central-1",
		},
		Files: FilesConf{
			Backend:    FilesBackendLocal,
			UploadsDir: "uploads",
			Region:     "eu-central-1",
		},
		Grammar: GrammarConf{
			Endpoint: "https://api.languagetool.org",
			Language: "en-US",
			Timeout:  "15s",
			CacheTTL: "10m",
		},
	}
}

// Load reads an optional .env file, an optional TOML file at path and
// IELTS_* environment overrides on top of Default().
func Load(path string) (*Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"IELTS_SERVER_ADDR":             &c.Server.Addr,
		"IELTS_SERVER_ENV":              &c.Server.Env,
		"IELTS_SERVER_VERSION":          &c.Server.Version,
		"IELTS_LOG_LEVEL":               &c.Log.Level,
		"IELTS_LOG_FORMAT":              &c.Log.Format,
		"IELTS_TEACHER_USERNAME":        &c.Teacher.Username,
		"IELTS_TEACHER_PASSWORD":        &c.Teacher.Password,
		"IELTS_TEACHER_PASSWORD_BCRYPT": &c.Teacher.PasswordBcrypt,
		"IELTS_JWT_KEY":                 &c.Jwt.Key,
		"IELTS_JWT_SECRET_NAME":         &c.Jwt.SecretName,
		"IELTS_JWT_TOKEN_TTL":           &c.Jwt.TokenTTL,
		"IELTS_STORE_BACKEND":           &c.Store.Backend,
		"IELTS_STORE_BOLT_PATH":         &c.Store.BoltPath,
		"IELTS_STORE_DYNAMO_TABLE":      &c.Store.DynamoTable,
		"IELTS_STORE_REGION":            &c.Store.Region,
		"IELTS_FILES_BACKEND":           &c.Files.Backend,
		"IELTS_FILES_UPLOADS_DIR":       &c.Files.UploadsDir,
		"IELTS_FILES_S3_BUCKET":         &c.Files.S3Bucket,
		"IELTS_FILES_REGION":            &c.Files.Region,
		"IELTS_GRAMMAR_ENDPOINT":        &c.Grammar.Endpoint,
		"IELTS_GRAMMAR_LANGUAGE":        &c.Grammar.Language,
		"IELTS_GRAMMAR_TIMEOUT":         &c.Grammar.Timeout,
		"IELTS_GRAMMAR_CACHE_TTL":       &c.Grammar.CacheTTL,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	if v, ok := lookup("IELTS_SERVER_CORS_ORIGINS"); ok {
		c.Server.CorsOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Server.CorsOrigins = append(c.Server.CorsOrigins, origin)
			}
		}
	}

	if v, ok := lookup("IELTS_SERVER_MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid IELTS_SERVER_MAX_UPLOAD_BYTES %q: %w", v, err)
		}
		c.Server.MaxUploadBytes = n
	}

	return nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Jwt.Key == "" && c.Jwt.SecretName == "" {
		return errors.New("jwt key is not set")
	}
	if c.Teacher.Username == "" {
		return errors.New("teacher username is not set")
	}
	if c.Teacher.Password == "" && c.Teacher.PasswordBcrypt == "" {
		return errors.New("teacher password is not set")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("max upload size must be positive")
	}

	switch c.Store.Backend {
	case StoreBackendBolt:
		if c.Store.BoltPath == "" {
			return errors.New("bolt path is not set")
		}
	case StoreBackendDynamo:
		if c.Store.DynamoTable == "" {
			return errors.New("dynamodb table is not set")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Files.Backend {
	case FilesBackendLocal:
		if c.Files.UploadsDir == "" {
			return errors.New("uploads dir is not set")
		}
	case FilesBackendS3:
		if c.Files.S3Bucket == "" {
			return errors.New("s3 bucket is not set")
		}
	default:
		return fmt.Errorf("unknown files backend %q", c.Files.Backend)
	}

	durations := map[string]string{
		"jwt.token_ttl":     c.Jwt.TokenTTL,
		"grammar.timeout":   c.Grammar.Timeout,
		"grammar.cache_ttl": c.Grammar.CacheTTL,
	}
	for name, v := range durations {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	return nil
}

func (j JwtConf) TTL() time.Duration {
	return mustDuration(j.TokenTTL, 24*time.Hour)
}

func (g GrammarConf) TimeoutDuration() time.Duration {
	return mustDuration(g.Timeout, 15*time.Second)
}

func (g GrammarConf) CacheTTLDuration() time.Duration {
	return mustDuration(g.CacheTTL, 10*time.Minute)
}

func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
