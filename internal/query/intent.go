package query

import "strings"

// Intent is the classified purpose of a natural-language query. The set is
// closed: classification always lands on exactly one member.
type Intent string

const (
	IntentAuthentication Intent = "find_authentication"
	IntentAPI            Intent = "find_api"
	IntentDatabase       Intent = "find_database"
	IntentFunction       Intent = "find_function"
	IntentType           Intent = "find_type"
	IntentErrorHandling  Intent = "find_error_handling"
	IntentConfiguration  Intent = "find_configuration"
	IntentGeneral        Intent = "general_search"
)

// intentBucket pairs an intent with the keywords that select it.
type intentBucket struct {
	intent   Intent
	keywords []string
}

// intentBuckets is an ordered rule table: buckets are tried in declaration
// order and the first match wins. The ordering is a contract - ties between
// buckets resolve to the earlier one, and tests pin this behavior.
var intentBuckets = []intentBucket{
	{IntentAuthentication, []string{"auth", "login", "password", "credential", "token", "session", "oauth", "sign in", "signin"}},
	{IntentAPI, []string{"api", "endpoint", "route", "rest", "http", "request handler", "controller"}},
	{IntentDatabase, []string{"database", "db ", "sql", "query", "table", "schema", "migration", "repository"}},
	{IntentFunction, []string{"function", "func ", "method", "procedure", "subroutine"}},
	{IntentType, []string{"type", "class", "interface", "struct", "enum", "model"}},
	{IntentErrorHandling, []string{"error", "exception", "panic", "catch", "failure", "fault"}},
	{IntentConfiguration, []string{"config", "configuration", "settings", "environment variable", "option"}},
}

// ClassifyIntent matches the lowercased query against the ordered keyword
// buckets. Queries matching no bucket classify as general_search.
func ClassifyIntent(rawQuery string) Intent {
	lowered := strings.ToLower(rawQuery)
	for _, bucket := range intentBuckets {
		for _, kw := range bucket.keywords {
			if strings.Contains(lowered, kw) {
				return bucket.intent
			}
		}
	}
	return IntentGeneral
}
