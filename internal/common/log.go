package common

// Log is a receipt log attached to a transaction by sources that include them.
type Log struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	LogIndex        Numeric  `json:"logIndex"`
	TransactionHash string   `json:"transactionHash,omitempty"`
}

func (l *Log) Topic(i int) string {
	if i < 0 || i >= len(l.Topics) {
		return ""
	}
	return l.Topics[i]
}
