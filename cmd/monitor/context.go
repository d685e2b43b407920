package main

import (
	"errors"
	"fmt"
	"os"

	"class_monitor/internal/infra/config"
	"class_monitor/internal/infra/logger"

	homedir "github.com/mitchellh/go-homedir"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configPath string
	config     *config.AppConfig
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, logLevelFlag: logLevelFlag}
}

func (c *commandContext) ensureConfig() (*config.AppConfig, error) {
	if c.config != nil {
		return c.config, nil
	}
	path, err := resolveConfigPath(*c.configFlag)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.configPath = path
	c.config = cfg
	c.initLogging(cfg.LogLevel, cfg.Environment)
	logger.Log.WithField("config", path).Debug("Configuration loaded")
	return cfg, nil
}

func (c *commandContext) initLogging(level, environment string) {
	if *c.logLevelFlag != "" {
		level = *c.logLevelFlag
	}
	if level == "" {
		level = "info"
	}
	logger.Init(level, environment)
}

// resolveConfigPath prefers the flag, then the working directory, then the home directory.
func resolveConfigPath(flag string) (string, error) {
	if flag != "" {
		return homedir.Expand(flag)
	}
	if _, err := os.Stat(config.DefaultFile); err == nil {
		return config.DefaultFile, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	path := home + string(os.PathSeparator) + "." + config.DefaultFile
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("no config file: create %s or %s, or pass --config", config.DefaultFile, path)
	}
	return path, nil
}
