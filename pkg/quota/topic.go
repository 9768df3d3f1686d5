package quota

import (
	"fmt"
	"strconv"
	"strings"
)

// versionTopicSuffix is the separator between a store name and its encoded
// version number, e.g. "my-store_v3".
const versionTopicSuffix = "_v"

// ParseVersionNumber extracts the version number encoded in a version
// topic name of the form "{storeName}_v{number}". It does not validate
// that storeName matches any particular store; callers that need that are
// expected to compare separately.
func ParseVersionNumber(versionTopic string) (int, error) {
	idx := strings.LastIndex(versionTopic, versionTopicSuffix)
	if idx < 0 {
		return 0, fmt.Errorf("version topic %q does not encode a version number", versionTopic)
	}

	numPart := versionTopic[idx+len(versionTopicSuffix):]
	n, err := strconv.Atoi(numPart)
	if err != nil {
		return 0, fmt.Errorf("version topic %q has a non-numeric version suffix: %w", versionTopic, err)
	}

	return n, nil
}

// StoreNameFromVersionTopic strips the encoded version suffix, returning
// the store name a version topic belongs to.
func StoreNameFromVersionTopic(versionTopic string) string {
	idx := strings.LastIndex(versionTopic, versionTopicSuffix)
	if idx < 0 {
		return versionTopic
	}
	return versionTopic[:idx]
}
