// Package mqtt delivers negotiated events by publishing them to an MQTT broker.
//
// A single Publisher holds the broker connection for the whole server. On each
// request the handler publishes the event body to the topic the client named
// in its Accept-Events entry, below the configured topic prefix:
//
//	Accept-Events: mqtt;topic="orders/7";qos=1
//
// # Basic Usage
//
//	pub := mqtt.NewPublisher(mqtt.PublisherConfig{
//	    BrokerURL: "tcp://localhost:1883",
//	})
//	if err := pub.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer pub.Close()
//
//	reg.Register(mqtt.Protocol, mqtt.NewFactory(pub))
//
// The client may lower, but never raise, the configured QoS with the qos parameter.
package mqtt
