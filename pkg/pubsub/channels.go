package pubsub

import (
	"fmt"
	"strings"
)

// Channel naming conventions for relay events mirrored to other services.
const (
	// ChannelRelayTopic carries every publish on a relay topic.
	ChannelRelayTopic = "relay:topic:%s"

	channelPrefix = "relay:topic:"
)

// Event types mirrored from the relay.
const (
	EventTopicPublish = "topic_publish"
)

// TopicChannel returns the export channel for a relay topic.
func TopicChannel(topic string) string {
	return fmt.Sprintf(ChannelRelayTopic, topic)
}

// TopicFromChannel extracts the relay topic from an export channel name.
func TopicFromChannel(channel string) (string, error) {
	if !strings.HasPrefix(channel, channelPrefix) {
		return "", fmt.Errorf("invalid channel format: %s", channel)
	}
	topic := strings.TrimPrefix(channel, channelPrefix)
	if topic == "" || strings.Contains(topic, ":") {
		return "", fmt.Errorf("invalid channel format: %s", channel)
	}
	return topic, nil
}
