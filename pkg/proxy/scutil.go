package proxy

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// ScutilStrategy reads the macOS system proxy settings from `scutil --proxy`
type ScutilStrategy struct {
	runner CommandRunner
}

func NewScutilStrategy(runner CommandRunner) *ScutilStrategy {
	if runner == nil {
		runner = NewExecRunner()
	}
	return &ScutilStrategy{runner: runner}
}

func (s *ScutilStrategy) Name() string {
	return "macos"
}

func (s *ScutilStrategy) Find(ctx context.Context) (*Config, error) {
	out, err := s.runner.Output(ctx, "scutil", "--proxy")
	if err != nil {
		return nil, fmt.Errorf("scutil --proxy: %w", err)
	}
	cfg := parseScutilProxy(string(out))
	if cfg.Empty() {
		return nil, nil
	}
	return cfg, nil
}

// parseScutilProxy parses the dictionary printed by `scutil --proxy`:
//
//	<dictionary> {
//	  ExceptionsList : <array> {
//	    0 : *.local
//	  }
//	  HTTPEnable : 1
//	  HTTPPort : 8080
//	  HTTPProxy : proxy.example.com
//	}
func parseScutilProxy(out string) *Config {
	values := make(map[string]string)
	var exceptions []string
	inExceptions := false

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, " : ")
		if inExceptions {
			if line == "}" {
				inExceptions = false
			} else if ok {
				exceptions = append(exceptions, strings.TrimSpace(value))
			}
			continue
		}
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "ExceptionsList" && strings.HasPrefix(value, "<array>") {
			inExceptions = true
			continue
		}
		values[key] = value
	}

	cfg := &Config{NoProxy: strings.Join(exceptions, ",")}
	if values["HTTPEnable"] == "1" {
		cfg.HTTPProxy = hostPort(values["HTTPProxy"], values["HTTPPort"])
	}
	if values["HTTPSEnable"] == "1" {
		cfg.HTTPSProxy = hostPort(values["HTTPSProxy"], values["HTTPSPort"])
	}
	return cfg
}
