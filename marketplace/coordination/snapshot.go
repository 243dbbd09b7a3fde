package coordination

import "fmt"

func encodeTransaction(tx *Transaction) TransactionRecord {
	steps := make([]StepRecord, 0, len(tx.Steps))

	for _, step := range tx.Steps {
		steps = append(steps, StepRecord{
			StepID:       step.ID,
			Participant:  step.Participant,
			Action:       step.Action,
			Parameters:   step.Parameters,
			Status:       step.Status.String(),
			Result:       step.Result,
			Error:        step.Error,
			Dependencies: step.Dependencies,
			CompletedAt:  step.CompletedAt,
		})
	}

	return TransactionRecord{
		TransactionID: tx.ID,
		Kind:          tx.Kind.String(),
		Initiator:     tx.Initiator,
		Participants:  tx.Participants,
		Steps:         steps,
		Status:        tx.Status.String(),
		TotalValue:    tx.TotalValue,
		Fees:          tx.Fees,
		Metadata:      tx.Metadata,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
		CompletedAt:   tx.CompletedAt,
	}
}

// decodeTransaction reconstructs a typed transaction from its wire form,
// rejecting unknown kind or status strings.
func decodeTransaction(record TransactionRecord) (*Transaction, error) {
	kind, err := ParseTransactionKind(record.Kind)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", record.TransactionID, err)
	}

	status, err := ParseTransactionStatus(record.Status)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", record.TransactionID, err)
	}

	steps := make([]*Step, 0, len(record.Steps))

	for _, stepRecord := range record.Steps {
		stepStatus, err := ParseStepStatus(stepRecord.Status)
		if err != nil {
			return nil, fmt.Errorf("transaction %s step %s: %w", record.TransactionID, stepRecord.StepID, err)
		}

		steps = append(steps, &Step{
			ID:           stepRecord.StepID,
			Participant:  stepRecord.Participant,
			Action:       stepRecord.Action,
			Parameters:   stepRecord.Parameters,
			Status:       stepStatus,
			Result:       stepRecord.Result,
			Error:        stepRecord.Error,
			Dependencies: stepRecord.Dependencies,
			CompletedAt:  stepRecord.CompletedAt,
		})
	}

	metadata := record.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return &Transaction{
		ID:           record.TransactionID,
		Kind:         kind,
		Initiator:    record.Initiator,
		Participants: record.Participants,
		Steps:        steps,
		Status:       status,
		TotalValue:   record.TotalValue,
		Fees:         record.Fees,
		Metadata:     metadata,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
		CompletedAt:  record.CompletedAt,
	}, nil
}
