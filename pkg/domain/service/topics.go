package service

// kafkaTopicNames compiles the environment variables naming the kafka
// topics DataHub runs on.
//
// Ref: https://github.com/datahub-project/datahub/blob/master/docs/how/kafka-config.md#topic-configuration
//
// These are shared across all services; a non-empty prefix is prepended
// to every topic name with an underscore.
func kafkaTopicNames(prefix string) map[string]string {
	defaultNames := map[string]string{
		"METADATA_CHANGE_PROPOSAL_TOPIC_NAME":        "MetadataChangeProposal_v1",
		"FAILED_METADATA_CHANGE_PROPOSAL_TOPIC_NAME": "FailedMetadataChangeProposal_v1",
		"METADATA_CHANGE_LOG_VERSIONED_TOPIC_NAME":   "MetadataChangeLog_Versioned_v1",
		"METADATA_CHANGE_LOG_TIMESERIES_TOPIC_NAME":  "MetadataChangeLog_Timeseries_v1",
		"PLATFORM_EVENT_TOPIC_NAME":                  "PlatformEvent_v1",
		"DATAHUB_UPGRADE_HISTORY_TOPIC_NAME":         "DataHubUpgradeHistory_v1",
		"DATAHUB_USAGE_EVENT_NAME":                   "DataHubUsageEvent_v1",
	}
	defaultNames["DATAHUB_TRACKING_TOPIC"] = defaultNames["DATAHUB_USAGE_EVENT_NAME"]

	if prefix == "" {
		return defaultNames
	}

	names := map[string]string{}
	for k, v := range defaultNames {
		names[k] = prefix + "_" + v
	}
	return names
}
