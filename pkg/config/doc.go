/*
Package config loads the relay configuration.

Three layers are merged in order, later layers winning:

 1. Built-in defaults (Default)
 2. An optional YAML file (--config flag)
 3. Environment variables: HOST, PORT, WEBHOOK_SECRET_TOKEN,
    CHAT_WEBHOOK_URL, LOG_LEVEL

The environment layer exists so the process can be configured entirely
without a file, matching how the relay is typically deployed behind a
process supervisor.
*/
package config
