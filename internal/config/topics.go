package config

const (
	// TopicReindex carries requests to rebuild one user's report and vector index.
	TopicReindex = "transactions.reindex"

	// ChannelReindex is the consumer channel used by the backend worker.
	ChannelReindex = "backend"
)
