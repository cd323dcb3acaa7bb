package redis

import "fmt"

// Key prefix for all corpus data
const keyPrefix = "wordbomb"

// dictionaryKey returns the Redis key for the dictionary word set
func dictionaryKey() string {
	return fmt.Sprintf("%s:dictionary", keyPrefix)
}

// syllablesKey returns the Redis key for the ordered syllable list
func syllablesKey() string {
	return fmt.Sprintf("%s:syllables", keyPrefix)
}
