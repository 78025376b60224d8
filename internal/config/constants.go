package config

// Constants defining default values for application configuration
const (
	DefaultDBPath     = "./news_archive.db"
	DefaultLedgerPath = "./archive/news_archive.jsonl"

	// DefaultNewsURL is the listing page being monitored.
	DefaultNewsURL = "https://www.europeantour.com/players/marcel-schneider-35703/news?tour=dpworld-tour"

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultIntervalSeconds = 3600 // Seconds between polls

	DefaultLogLevel = "info"
)
