package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the retrieval core.
type Config struct {
	Collection   string          `yaml:"collection"`
	DataDir      string          `yaml:"data_dir"`      // persisted corpus location
	KnowledgeDir string          `yaml:"knowledge_dir"` // ingest source directory
	Extract      ExtractConfig   `yaml:"extract"`
	Chunking     ChunkingConfig  `yaml:"chunking"`
	Embedding    EmbeddingConfig `yaml:"embedding"`
	Ingest       IngestConfig    `yaml:"ingest"`
	Retrieval    RetrievalConfig `yaml:"retrieval"`
	Logging      LoggingConfig   `yaml:"logging"`
}

// ExtractConfig holds text extraction configuration.
type ExtractConfig struct {
	// RecoveryKeywords filter the best-effort PDF recovery pass: a line missed
	// by structured extraction is only recovered when it contains one of these.
	RecoveryKeywords []string `yaml:"recovery_keywords"`
}

// ChunkingConfig holds structure-aware chunking parameters.
type ChunkingConfig struct {
	ChunkSize               int  `yaml:"chunk_size"`    // target characters per chunk
	ChunkOverlap            int  `yaml:"chunk_overlap"` // characters carried between text windows
	EnsureCompleteSentences bool `yaml:"ensure_complete_sentences"`
	MaxDocChars             int  `yaml:"max_doc_chars"` // hard ceiling before chunking
}

// EmbeddingConfig holds embedding backend configuration.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // "openai", "ollama", "mock"
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Dimension   int    `yaml:"dimension"`
	BatchSize   int    `yaml:"batch_size"`
	MaxAttempts int    `yaml:"max_attempts"` // connection attempts before init fails
}

// IngestConfig holds ingestion configuration.
type IngestConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
	Workers  int      `yaml:"workers"` // bounded file-processing concurrency
}

// IntentRule describes one detectable query intent. Cues are matched against
// the query; Signals against candidate chunk content. A chunk gets Bonus
// added when at least MinSignals of the signals appear in it.
type IntentRule struct {
	Name            string   `yaml:"name"`
	Cues            []string `yaml:"cues"`
	Signals         []string `yaml:"signals"`
	MinSignals      int      `yaml:"min_signals"`
	Bonus           float64  `yaml:"bonus"`
	BoostStructured bool     `yaml:"boost_structured"` // also boost table/list chunks
}

// RetrievalConfig holds retrieval and ranking configuration. The keyword sets
// are configuration data so ranking can be tuned without touching logic.
type RetrievalConfig struct {
	TopK             int          `yaml:"top_k"`
	PoolMultiplier   int          `yaml:"pool_multiplier"` // semantic pool = multiplier * top_k
	MaxContextChunks int          `yaml:"max_context_chunks"`
	EntityCues       []string     `yaml:"entity_cues"` // interrogative/contact triggers
	Entities         []string     `yaml:"entities"`    // domain entity vocabulary
	Intents          []IntentRule `yaml:"intents"`
	StructuredBonus  float64      `yaml:"structured_bonus"`   // table/list bonus
	TermOverlapBonus float64      `yaml:"term_overlap_bonus"` // >=2 shared query terms
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Collection:   "documents",
		DataDir:      "data/embeddings",
		KnowledgeDir: "data/knowledge",
		Extract: ExtractConfig{
			RecoveryKeywords: []string{
				"policy", "benefit", "leave", "vacation", "insurance", "payroll",
				"salary", "manager", "employee", "contact", "hr", "onboarding",
			},
		},
		Chunking: ChunkingConfig{
			ChunkSize:               1000,
			ChunkOverlap:            200,
			EnsureCompleteSentences: true,
			MaxDocChars:             1_000_000,
		},
		Embedding: EmbeddingConfig{
			Provider:    "openai",
			Model:       "text-embedding-3-small",
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Dimension:   768,
			BatchSize:   16,
			MaxAttempts: 3,
		},
		Ingest: IngestConfig{
			Includes: []string{"**/*.pdf", "**/*.docx", "**/*.txt", "**/*.md", "**/*.csv"},
			Excludes: []string{"**/.*/**", "**/~$*"},
			Workers:  4,
		},
		Retrieval: RetrievalConfig{
			TopK:             5,
			PoolMultiplier:   3,
			MaxContextChunks: 12,
			EntityCues: []string{
				"who", "whom", "contact", "email", "phone", "reach", "extension", "call",
			},
			Entities: []string{
				"hr", "payroll", "benefits", "insurance", "manager", "recruiting",
				"onboarding", "compliance", "it support", "helpdesk",
			},
			Intents: []IntentRule{
				{
					Name:            "name",
					Cues:            []string{"who", "name", "called", "person"},
					Signals:         []string{"name", "manager", "lead", "head", "director"},
					MinSignals:      1,
					Bonus:           0.2,
					BoostStructured: true,
				},
				{
					Name:            "contact",
					Cues:            []string{"contact", "email", "phone", "reach", "extension"},
					Signals:         []string{"@", "phone", "email", "ext", "tel"},
					MinSignals:      1,
					Bonus:           0.25,
					BoostStructured: true,
				},
				{
					Name:       "policy",
					Cues:       []string{"policy", "rule", "allowed", "regulation", "permitted"},
					Signals:    []string{"policy", "must", "required", "prohibited"},
					MinSignals: 1,
					Bonus:      0.2,
				},
				{
					Name:       "benefit",
					Cues:       []string{"benefit", "insurance", "401k", "vacation", "pto", "leave"},
					Signals:    []string{"benefit", "coverage", "insurance", "eligible"},
					MinSignals: 1,
					Bonus:      0.2,
				},
				{
					Name:       "process",
					Cues:       []string{"how", "process", "steps", "procedure", "apply", "submit"},
					Signals:    []string{"step", "first", "then", "submit", "request", "approval", "form", "complete", "process"},
					MinSignals: 4,
					Bonus:      0.4,
				},
			},
			StructuredBonus:  0.15,
			TermOverlapBonus: 0.2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, layered over defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for ragkit.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "ragkit.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".ragkit", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EmbeddingFilePath returns the path of the persisted embedding matrix.
func (c *Config) EmbeddingFilePath() string {
	return filepath.Join(c.DataDir, c.Collection+".vec")
}

// DocumentFilePath returns the path of the persisted document list.
func (c *Config) DocumentFilePath() string {
	return filepath.Join(c.DataDir, c.Collection+"_docs.json")
}

// ManifestPath returns the path of the ingest manifest database.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.DataDir, c.Collection+"_manifest.db")
}
