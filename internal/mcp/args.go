package mcp

import "fmt"

// parseStringArg extracts a string argument from an MCP arguments map.
// Returns an error if the argument is required but missing or invalid.
func parseStringArg(argsMap map[string]interface{}, key string, required bool) (string, error) {
	val, ok := argsMap[key]
	if !ok {
		if required {
			return "", fmt.Errorf("%s parameter is required", key)
		}
		return "", nil
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	if required && str == "" {
		return "", fmt.Errorf("%s cannot be empty", key)
	}
	return str, nil
}

// parseIntArg extracts an integer argument from an MCP arguments map.
// MCP sends numbers as float64, so this handles the conversion.
// Returns defaultVal if the argument is missing or invalid.
func parseIntArg(argsMap map[string]interface{}, key string, defaultVal int) int {
	val, ok := argsMap[key]
	if !ok {
		return defaultVal
	}
	if f, ok := val.(float64); ok {
		return int(f)
	}
	return defaultVal
}

// parseFloatArg extracts a float argument from an MCP arguments map.
// Returns defaultVal if the argument is missing or invalid.
func parseFloatArg(argsMap map[string]interface{}, key string, defaultVal float64) float64 {
	val, ok := argsMap[key]
	if !ok {
		return defaultVal
	}
	if f, ok := val.(float64); ok {
		return f
	}
	return defaultVal
}

// parseBoolArg extracts a boolean argument from an MCP arguments map.
// Returns defaultVal if the argument is missing or invalid.
func parseBoolArg(argsMap map[string]interface{}, key string, defaultVal bool) bool {
	val, ok := argsMap[key]
	if !ok {
		return defaultVal
	}
	if b, ok := val.(bool); ok {
		return b
	}
	return defaultVal
}

// requestArgs coerces the raw MCP arguments payload into a map.
func requestArgs(raw interface{}) (map[string]interface{}, bool) {
	argsMap, ok := raw.(map[string]interface{})
	return argsMap, ok
}
