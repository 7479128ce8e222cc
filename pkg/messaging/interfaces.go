package messaging

// StatisticsPublisher defines the interface for publishing analysis results
type StatisticsPublisher interface {
	PublishStatistics(msg *StatisticsMessage) error
	IsConnected() bool
	Connect() error
	Disconnect()
}
