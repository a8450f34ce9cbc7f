package rules

// SeedRules returns the starter rules offered to a fresh installation. They
// are examples a user is expected to edit, so they ship disabled except for
// the harmless newsletter filing one.
func SeedRules() []Rule {
	return []Rule{
		{
			Name:          "File newsletters",
			Description:   "Collect messages that carry an unsubscribe link into the newsletters bucket.",
			Enabled:       true,
			LogicOperator: LogicOr,
			Conditions: []Condition{
				{Type: ConditionContent, Operator: OperatorContains, Value: "unsubscribe"},
				{Type: ConditionSubject, Operator: OperatorContains, Value: "newsletter"},
			},
			Actions: []Action{
				{Type: ActionMarkEmail, Parameters: ActionParams{Bucket: "newsletters"}},
			},
		},
		{
			Name:          "Summarize linked articles",
			Description:   "Request a summary for messages from trusted senders that contain links.",
			Enabled:       false,
			LogicOperator: LogicAnd,
			Conditions: []Condition{
				{Type: ConditionHasLinks, Operator: OperatorEquals, Value: true},
				{Type: ConditionSenderScore, Operator: OperatorGreaterThan, Value: "10"},
			},
			Actions: []Action{
				{Type: ActionRequestSummary},
			},
		},
		{
			Name:          "Flag invoices",
			Description:   "Mark invoice emails and pull the invoice number into a variable.",
			Enabled:       false,
			LogicOperator: LogicOr,
			Conditions: []Condition{
				{Type: ConditionSubject, Operator: OperatorContains, Value: "invoice"},
				{Type: ConditionContentRegex, Operator: OperatorRegexMatch, Value: `invoice\s*#?\d+`},
			},
			Actions: []Action{
				{Type: ActionSaveVariable, Parameters: ActionParams{
					VariableName: "invoiceNumber",
					Source:       "content",
					Pattern:      `#(\d+)`,
				}},
				{Type: ActionMarkEmail, Parameters: ActionParams{Bucket: "invoices"}},
				{Type: ActionLogMessage, Parameters: ActionParams{
					Message: "invoice ${variables.invoiceNumber} from ${senderInfo.email}",
				}},
			},
		},
	}
}
