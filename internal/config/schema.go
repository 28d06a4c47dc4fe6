// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"encoding/json"
	"fmt"
	"sort"
)

func normalizeConfigJSON(data []byte) ([]byte, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if err := validateConfigMap(raw, ""); err != nil {
		return nil, err
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

func validateConfigMap(raw map[string]interface{}, prefix string) error {
	allowed := map[string]func(interface{}) error{
		"detection": func(v interface{}) error { return validateString(v, prefix+"detection") },
		"agent_env": func(v interface{}) error { return validateAgentEnv(v, prefix+"agent_env.") },
		"host_app":  func(v interface{}) error { return validateString(v, prefix+"host_app") },
		"max_ancestry_depth": func(v interface{}) error {
			return validateNumber(v, prefix+"max_ancestry_depth")
		},
		"capture":  func(v interface{}) error { return validateCapture(v, prefix+"capture.") },
		"grep":     func(v interface{}) error { return validateGrep(v, prefix+"grep.") },
		"tail":     func(v interface{}) error { return validateTail(v, prefix+"tail.") },
		"log_file": func(v interface{}) error { return validateString(v, prefix+"log_file") },
		"debug":    func(v interface{}) error { return validateBool(v, prefix+"debug") },
	}
	return validateSection(raw, allowed, prefix)
}

func validateAgentEnv(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s must be an object", trimDot(prefix))
	}
	allowed := map[string]func(interface{}) error{
		"name":  func(v interface{}) error { return validateString(v, prefix+"name") },
		"value": func(v interface{}) error { return validateString(v, prefix+"value") },
	}
	return validateSection(section, allowed, prefix)
}

func validateCapture(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s must be an object", trimDot(prefix))
	}
	allowed := map[string]func(interface{}) error{
		"enabled": func(v interface{}) error { return validateBool(v, prefix+"enabled") },
		"dir":     func(v interface{}) error { return validateString(v, prefix+"dir") },
	}
	return validateSection(section, allowed, prefix)
}

func validateGrep(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s must be an object", trimDot(prefix))
	}
	allowed := map[string]func(interface{}) error{
		"binary":        func(v interface{}) error { return validateString(v, prefix+"binary") },
		"context_lines": func(v interface{}) error { return validateNumber(v, prefix+"context_lines") },
		"extra_args":    func(v interface{}) error { return validateStringArray(v, prefix+"extra_args") },
		"exclude_dirs":  func(v interface{}) error { return validateStringArray(v, prefix+"exclude_dirs") },
	}
	return validateSection(section, allowed, prefix)
}

func validateTail(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s must be an object", trimDot(prefix))
	}
	allowed := map[string]func(interface{}) error{
		"binary":    func(v interface{}) error { return validateString(v, prefix+"binary") },
		"min_lines": func(v interface{}) error { return validateNumber(v, prefix+"min_lines") },
	}
	return validateSection(section, allowed, prefix)
}

func validateSection(section map[string]interface{}, allowed map[string]func(interface{}) error, prefix string) error {
	keys := make([]string, 0, len(section))
	for key := range section {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		validator, ok := allowed[key]
		if !ok {
			return fmt.Errorf("unknown configuration field %q", prefix+key)
		}
		if err := validator(section[key]); err != nil {
			return err
		}
	}
	return nil
}

func trimDot(prefix string) string {
	if n := len(prefix); n > 0 && prefix[n-1] == '.' {
		return prefix[:n-1]
	}
	return prefix
}

func validateString(value interface{}, name string) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("%s must be a string", name)
	}
	return nil
}

func validateNumber(value interface{}, name string) error {
	if _, ok := value.(float64); !ok {
		return fmt.Errorf("%s must be a number", name)
	}
	return nil
}

func validateBool(value interface{}, name string) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("%s must be a boolean", name)
	}
	return nil
}

func validateStringArray(value interface{}, name string) error {
	list, ok := value.([]interface{})
	if !ok {
		return fmt.Errorf("%s must be an array of strings", name)
	}
	for _, item := range list {
		if _, ok := item.(string); !ok {
			return fmt.Errorf("%s must be an array of strings", name)
		}
	}
	return nil
}
