// Package config loads the acceptevents server configuration.
//
// Configuration is read from a YAML or JSON file; the format is chosen by file
// extension. Each protocol section enables that protocol when present:
//
//	listen: ":8080"
//	log:
//	  level: debug
//	  format: json
//	sse:
//	  eventType: update
//	  retry: 3000
//	webhook:
//	  source: urn:acceptevents:demo
//	  allowedHosts: [hooks.example.com]
//	  timeout: 5s
//	websocket:
//	  subprotocols: [events.v1]
//	mqtt:
//	  brokerUrl: tcp://localhost:1883
//	  topicPrefix: events/
//	  qos: 1
//	  retryInterval: 2s
//
// Durations use Go duration syntax in both formats.
package config
