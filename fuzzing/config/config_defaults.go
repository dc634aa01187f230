package config

import "github.com/rs/zerolog"

// GetDefaultProjectConfig obtains a default configuration for a project.
func GetDefaultProjectConfig() *ProjectConfig {
	projectConfig := &ProjectConfig{
		Fuzzing: FuzzingConfig{
			Workers:          10,
			Runs:             256,
			Depth:            100,
			Seed:             0,
			Timeout:          0,
			FailOnRevert:     false,
			MaxAssumeRejects: 32,
			ShrinkRunLimit:   5000,
			ShowMetrics:      false,
			ShowSolidity:     false,
			CorpusDirectory:  "",
			FailureDirectory: "failures",
			SenderAddresses:  []string{},
			ValueGeneration: ValueGenerationConfig{
				RandomAddressBias: 0.5,
				RandomIntegerBias: 0.5,
				RandomStringBias:  0.05,
				RandomBytesBias:   0.05,
				FixtureBias:       0.4,
				MaxArrayLength:    100,
				MaxBytesLength:    100,
				MaxStringLength:   100,
			},
		},
		Logging: LoggingConfig{
			Level:        zerolog.InfoLevel,
			LogDirectory: "",
			NoColor:      false,
		},
	}

	return projectConfig
}
