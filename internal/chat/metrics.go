package chat

import "context"

// ComputeMetrics derives the session aggregate from its full message set.
// Pure over its inputs; identical inputs produce identical output.
func ComputeMetrics(session *Session, messages []Message) SessionMetrics {
	m := SessionMetrics{
		SessionID:    session.SessionID,
		WasEscalated: session.Status == SessionEscalated,
	}

	var confidenceSum float64
	var confidenceCount int
	for i := range messages {
		msg := &messages[i]
		m.TotalMessages++
		switch msg.Sender {
		case SenderUser:
			m.UserMessages++
		case SenderBot:
			m.BotMessages++
			if msg.Confidence != nil {
				confidenceSum += *msg.Confidence
				confidenceCount++
			}
		}
	}

	if confidenceCount > 0 {
		m.AverageConfidence = confidenceSum / float64(confidenceCount)
	}

	if len(messages) >= 2 {
		duration := int(messages[len(messages)-1].CreatedAt.Sub(messages[0].CreatedAt).Minutes())
		m.DurationMinutes = &duration
	}

	return m
}

// RecomputeMetrics rebuilds and upserts the metrics snapshot for a session.
// Running it twice on unchanged input yields the same stored values.
func (s *Service) RecomputeMetrics(ctx context.Context, sessionID string) (*SessionMetrics, error) {
	session, err := s.repo.GetSessionBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	messages, err := s.repo.ListMessagesAsc(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	metrics := ComputeMetrics(session, messages)
	if err := s.repo.UpsertMetrics(ctx, &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}
