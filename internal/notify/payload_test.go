package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/vigil/internal/domain"
)

func TestParsePayloadRejectsEmpty(t *testing.T) {
	_, err := ParsePayload([]byte(`{}`))
	assert.Error(t, err)

	_, err = ParsePayload([]byte(`not json`))
	assert.Error(t, err)
}

func TestIntentFromNotificationBlock(t *testing.T) {
	payload, err := ParsePayload([]byte(`{
		"notification": {"title": "Task due", "body": "Finish the report", "icon": "/icons/task.png"},
		"data": {"url": "/tasks/42", "tag": "task-42"}
	}`))
	require.NoError(t, err)

	intent := payload.Intent()
	assert.Equal(t, "Task due", intent.Title)
	assert.Equal(t, "Finish the report", intent.Body)
	assert.Equal(t, "/icons/task.png", intent.Icon)
	assert.Equal(t, "/tasks/42", intent.TargetURL)
	assert.Equal(t, "task-42", intent.Tag)
}

func TestIntentFromDataOnlyPayload(t *testing.T) {
	payload, err := ParsePayload([]byte(`{
		"data": {"title": "Routine reminder", "body": "Morning routine", "url": "/routines"}
	}`))
	require.NoError(t, err)

	intent := payload.Intent()
	assert.Equal(t, "Routine reminder", intent.Title)
	assert.Equal(t, "Morning routine", intent.Body)
	assert.Equal(t, "/routines", intent.TargetURL)
	assert.Equal(t, defaultIcon, intent.Icon)
}

func TestIntentSynthesizesDefaults(t *testing.T) {
	payload, err := ParsePayload([]byte(`{"data": {"k": "v"}}`))
	require.NoError(t, err)

	intent := payload.Intent()
	assert.Equal(t, defaultTitle, intent.Title)
	assert.Equal(t, defaultIcon, intent.Icon)
	assert.Equal(t, "/", intent.TargetURL)
	require.NoError(t, intent.Validate())
}

func TestIntentDefaultActions(t *testing.T) {
	payload, err := ParsePayload([]byte(`{"notification": {"title": "Hi"}}`))
	require.NoError(t, err)

	intent := payload.Intent()
	require.Len(t, intent.Actions, 2)
	assert.Equal(t, "view", intent.Actions[0].Action)
	assert.Equal(t, "dismiss", intent.Actions[1].Action)
}

func TestIntentCarriedActions(t *testing.T) {
	payload, err := ParsePayload([]byte(`{
		"notification": {"title": "Hi"},
		"data": {"actions": "[{\"action\":\"snooze\",\"title\":\"Snooze\"}]"}
	}`))
	require.NoError(t, err)

	intent := payload.Intent()
	assert.Equal(t, []domain.NotificationAction{{Action: "snooze", Title: "Snooze"}}, intent.Actions)
}

func TestIntentRequireInteraction(t *testing.T) {
	payload, err := ParsePayload([]byte(`{
		"notification": {"title": "Hi"},
		"data": {"requireInteraction": "true"}
	}`))
	require.NoError(t, err)
	assert.True(t, payload.Intent().RequireInteraction)
}
