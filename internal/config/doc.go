// Package config loads the host configuration of a Vango application.
//
// The configuration lives in vango.json or, when that is absent, vango.yaml.
// Every field is optional; missing fields take the defaults of pkg/server.
//
// # Configuration File Structure
//
//	{
//	  "name": "demo",
//	  "server": {
//	    "address": ":8080",
//	    "wsPath": "/_vango/live",
//	    "codec": "cbor",
//	    "maxSessions": 1000,
//	    "clientScript": "./public/client.js"
//	  },
//	  "session": {
//	    "readTimeout": "60s",
//	    "heartbeatInterval": "30s",
//	    "compressThreshold": 1024
//	  },
//	  "observability": {
//	    "metrics": true,
//	    "tracing": false
//	  },
//	  "log": {
//	    "level": "debug",
//	    "format": "json"
//	  }
//	}
//
// The YAML form uses the same keys.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	sc, err := cfg.ServerConfig(cfg.Logger(os.Stderr))
package config
