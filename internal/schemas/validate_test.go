package schemas

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsilva7456/commlink/internal/types"
)

func TestValidateRunConfig_Valid(t *testing.T) {
	cfg := types.RunConfig{
		Version:           types.RunConfigVersion,
		ScenarioID:        uuid.New(),
		ModelArchitecture: "DreamerV3",
		LearningRate:      0.0001,
		BatchSize:         32,
		Epochs:            100,
		TrajectoryHorizon: 10,
		LatentDim:         256,
	}
	doc, err := json.Marshal(cfg)
	require.NoError(t, err)

	assert.NoError(t, ValidateRunConfig(doc))
}

func TestValidateRunConfig_EmptyObject(t *testing.T) {
	// All fields are optional; the schema constrains shape, not presence.
	assert.NoError(t, ValidateRunConfig([]byte(`{}`)))
}

func TestValidateRunConfig_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"zero learning rate": `{"learning_rate": 0}`,
		"negative epochs":    `{"epochs": -5}`,
		"non-integer batch":  `{"batch_size": "big"}`,
		"unknown field":      `{"optimizer": "adam"}`,
		"bad scenario id":    `{"scenario_id": "not-a-uuid"}`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateRunConfig([]byte(doc))
			require.Error(t, err)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.NotEmpty(t, ve.Errors)
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidateRunConfig([]byte(`{"epochs": 0}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "epochs")
}
