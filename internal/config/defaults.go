package config

// ApplyDefaults fills in zero-valued fields with sensible defaults so a
// minimal config file still yields a working server.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".inquest/documents.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = ".inquest/index.bleve"
	}

	if cfg.Corpus.BatesPrefix == "" {
		cfg.Corpus.BatesPrefix = "EFTA"
	}
	if cfg.Corpus.BatesDigits == 0 {
		cfg.Corpus.BatesDigits = 8
	}

	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 25
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 500
	}
	if cfg.Search.FragmentSize == 0 {
		cfg.Search.FragmentSize = 300
	}
	if cfg.Search.MinFragmentSize == 0 {
		cfg.Search.MinFragmentSize = 50
	}
	if cfg.Search.MaxFragmentSize == 0 {
		cfg.Search.MaxFragmentSize = 2000
	}
	if cfg.Search.Fragments == 0 {
		cfg.Search.Fragments = 3
	}
	if cfg.Search.MaxFragments == 0 {
		cfg.Search.MaxFragments = 10
	}
	if cfg.Search.ReadMinChars == 0 {
		cfg.Search.ReadMinChars = 200
	}
	if cfg.Search.ReadMaxChars == 0 {
		cfg.Search.ReadMaxChars = 200000
	}
	if cfg.Search.BatchBudgetChars == 0 {
		cfg.Search.BatchBudgetChars = 2000000
	}
	if cfg.Search.ListPageSize == 0 {
		cfg.Search.ListPageSize = 1000
	}

	if cfg.Agent.MaxRounds == 0 {
		cfg.Agent.MaxRounds = 50
	}
	if cfg.Agent.MinFullReads == 0 {
		cfg.Agent.MinFullReads = 3
	}
	if cfg.Agent.MaxIntentChars == 0 {
		cfg.Agent.MaxIntentChars = 220
	}
	if cfg.Agent.MaxQuoteFailures == 0 {
		cfg.Agent.MaxQuoteFailures = 3
	}
	if cfg.Agent.MaxToolOutputChars == 0 {
		cfg.Agent.MaxToolOutputChars = 400000
	}

	if cfg.Agent.DeepSweep.CountThreshold == 0 {
		cfg.Agent.DeepSweep.CountThreshold = 20
	}
	if cfg.Agent.DeepSweep.LimitMin == 0 {
		cfg.Agent.DeepSweep.LimitMin = 100
	}
	if cfg.Agent.DeepSweep.TargetFraction == 0 {
		cfg.Agent.DeepSweep.TargetFraction = 0.30
	}
	if cfg.Agent.DeepSweep.MinBatchDocs == 0 {
		cfg.Agent.DeepSweep.MinBatchDocs = 50
	}
	if cfg.Agent.DeepSweep.MaxBatchDocs == 0 {
		cfg.Agent.DeepSweep.MaxBatchDocs = 200
	}
	if cfg.Agent.DeepSweep.MaxRetries == 0 {
		cfg.Agent.DeepSweep.MaxRetries = 2
	}

	if cfg.Model.Name == "" {
		cfg.Model.Name = "gemini-2.5-pro"
	}
	if cfg.Model.APIKeyEnv == "" {
		cfg.Model.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Model.TimeoutSeconds == 0 {
		cfg.Model.TimeoutSeconds = 300
	}
	if cfg.Model.RequestsPerSecond == 0 {
		cfg.Model.RequestsPerSecond = 0.5
	}
	if cfg.Model.Burst == 0 {
		cfg.Model.Burst = 1
	}

	if len(cfg.Watch.Extensions) == 0 {
		cfg.Watch.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".xlsx"}
	}
}
