package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/reelscout/reelscout/icon"
	"github.com/reelscout/reelscout/key"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// choices restricts string keys to a closed set of values.
var choices = map[string][]string{
	key.IconsVariant: icon.AvailableVariants(),
	key.LogsLevel:    lo.Map(logrus.AllLevels, func(l logrus.Level, _ int) string { return l.String() }),
}

// Parse converts raw command line values to the type of the key's default.
func Parse(k string, raw []string) (any, error) {
	field, ok := Default[k]
	if !ok {
		return nil, fmt.Errorf("unknown key %s", k)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no value for %s", k)
	}

	first := strings.TrimSpace(raw[0])

	switch field.Value.(type) {
	case string:
		if allowed, ok := choices[k]; ok && !lo.Contains(allowed, first) {
			return nil, fmt.Errorf("invalid value %q for %s, expected one of %s", first, k, strings.Join(allowed, ", "))
		}
		return first, nil
	case int:
		v, err := strconv.Atoi(first)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q for %s", first, k)
		}
		if v < 0 {
			return nil, fmt.Errorf("%s must not be negative", k)
		}
		return v, nil
	case bool:
		v, err := strconv.ParseBool(first)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean %q for %s", first, k)
		}
		return v, nil
	case []string:
		var values []string
		for _, r := range raw {
			for _, part := range strings.Split(r, ",") {
				if part = strings.TrimSpace(part); part != "" {
					values = append(values, part)
				}
			}
		}
		return values, nil
	default:
		return nil, fmt.Errorf("unsupported type of %s", k)
	}
}
