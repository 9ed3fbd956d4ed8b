package utils

// Tags builds a Sentry tag map from alternating keys and values.
// A trailing key without a value is dropped.
func Tags(kv ...string) map[string]string {
	tags := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		tags[kv[i]] = kv[i+1]
	}
	return tags
}
