package mqtt

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	mqttlib "github.com/eclipse/paho.mqtt.golang"

	"github.com/supby/zbridge/internal/configuration"
	"github.com/supby/zbridge/internal/logger"
)

const (
	BridgeStateOnline  = "online"
	BridgeStateOffline = "offline"
)

func NewClient(config configuration.ConfigurationService, clientLogger logger.Logger) (MqttClient, error) {
	cfg := config.GetConfiguration().MqttConfiguration

	retClient := &defaultMqttClient{
		configuration: config,
		logger:        clientLogger,
	}

	mqttlib.ERROR = newLibLogger(clientLogger.GetWriter())
	mqttlib.CRITICAL = newLibLogger(clientLogger.GetWriter())

	opts := mqttlib.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Address, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.AutoReconnect = true
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetWill(retClient.topic(BridgeStateTopic), BridgeStateOffline, 1, true)
	opts.OnConnect = retClient.onConnect
	opts.OnConnectionLost = func(client mqttlib.Client, err error) {
		retClient.logger.Warn("Connection lost: %v", err)
	}

	retClient.innerClient = mqttlib.NewClient(opts)

	if token := retClient.innerClient.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT on '%v:%v': %w", cfg.Address, cfg.Port, token.Error())
	}

	retClient.logger.Info("Connected to MQTT on '%v:%v'", cfg.Address, cfg.Port)

	return retClient, nil
}

type defaultMqttClient struct {
	innerClient     mqttlib.Client
	messageCallback func(topic string, message []byte)
	callbackMu      sync.RWMutex
	configuration   configuration.ConfigurationService
	logger          logger.Logger
}

func (cl *defaultMqttClient) topic(subTopic string) string {
	return fmt.Sprintf("%v/%v", cl.configuration.GetBaseTopic(), subTopic)
}

// subscriptions do not survive a reconnect with a clean session, so they are made here
func (cl *defaultMqttClient) onConnect(client mqttlib.Client) {
	base := cl.configuration.GetBaseTopic()

	if token := client.Subscribe(fmt.Sprintf("%s/#", base), 0, cl.onMessageReceived); token.Wait() && token.Error() != nil {
		cl.logger.Error("Failed to subscribe to '%v/#': %v", base, token.Error())
		return
	}

	client.Publish(cl.topic(BridgeStateTopic), 1, true, BridgeStateOnline)
	cl.logger.Debug("Subscribed to '%v/#'", base)
}

func (cl *defaultMqttClient) Dispose() {
	cl.logger.Info("Disposing MQTT client")
	if token := cl.innerClient.Publish(cl.topic(BridgeStateTopic), 1, true, BridgeStateOffline); token.WaitTimeout(time.Second) && token.Error() != nil {
		cl.logger.Warn("Failed to publish bridge state: %v", token.Error())
	}
	cl.innerClient.Disconnect(250)
}

func (cl *defaultMqttClient) Publish(subTopic string, data []byte, retain bool) {
	cl.innerClient.Publish(cl.topic(subTopic), 0, retain, data)
}

func (cl *defaultMqttClient) Subscribe(callback func(topic string, message []byte)) {
	cl.callbackMu.Lock()
	defer cl.callbackMu.Unlock()

	cl.messageCallback = callback
}

func (cl *defaultMqttClient) UnSubscribe() {
	cl.callbackMu.Lock()
	defer cl.callbackMu.Unlock()

	cl.messageCallback = nil
}

func (cl *defaultMqttClient) onMessageReceived(client mqttlib.Client, msg mqttlib.Message) {
	topic := msg.Topic()
	message := msg.Payload()

	cl.callbackMu.RLock()
	callback := cl.messageCallback
	cl.callbackMu.RUnlock()

	if callback != nil {
		go callback(topic, message)
	}
}

func newLibLogger(w io.Writer) *log.Logger {
	return log.New(w, "[paho] ", log.Ldate|log.Ltime|log.Lmicroseconds)
}
