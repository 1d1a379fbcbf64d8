package domain

// KeyPrefix namespaces all keys this service writes to the index store.
const KeyPrefix = "atticus:"
