package mqtt

type MqttClient interface {
	Dispose()
	// Publish sends data to <base>/<subTopic>.
	Publish(subTopic string, data []byte, retain bool)
	Subscribe(callback func(topic string, message []byte))
	UnSubscribe()
}
