package worker

import (
	"fmt"
	"path"
	"time"

	"plaid.dev/conllu/pipeline"
)

func getResultsFileKey(task *Task) string {
	direction, err := pipeline.ParseDirection(task.conversionTask.Direction)
	if err != nil {
		direction = pipeline.Import
	}
	return path.Join(
		"processed",
		"documents",
		task.conversionTask.DocID,
		"conversions",
		task.redisKey,
		fmt.Sprintf("%s.%s", task.redisKey, direction.Extension()),
	)
}

const RFC3339Micro = "2006-01-02T15:04:05.000000-07:00"

func getFormattedNow() *string {
	now := time.Now().UTC().Format(RFC3339Micro)
	return &now
}
