package configuration

type ConfigurationService interface {
	Update(updatedConfig Configuration) error
	GetConfiguration() Configuration
	// GetBaseTopic is read on every parsed message, so updates apply to the next one.
	GetBaseTopic() string
}
