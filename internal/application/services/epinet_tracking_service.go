// Package services provides application-level services that orchestrate
// business logic and coordinate between repositories and domain entities.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/events"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/tenant"
)

// EpinetTrackingService maps events onto configured funnel steps and records
// visitor transitions between nodes in the current hour's epinet bins.
type EpinetTrackingService struct {
	logger *logging.ChanneledLogger
}

func NewEpinetTrackingService(logger *logging.ChanneledLogger) *EpinetTrackingService {
	return &EpinetTrackingService{logger: logger}
}

// MatchEventToStep reports whether an event satisfies one funnel gate.
func (s *EpinetTrackingService) MatchEventToStep(event events.Event, step analytics.EpinetStep) bool {
	switch {
	case event.IsBelief() && step.GateType == analytics.GateBelief:
		return containsValue(step.Values, event.Verb)

	case event.IsBelief() && step.GateType == analytics.GateIdentifyAs:
		return event.Object != "" && containsValue(step.Values, event.Object)

	case step.GateType == analytics.GateCommitmentAction || step.GateType == analytics.GateConversionAction:
		if !containsValue(step.Values, event.Verb) {
			return false
		}
		if step.ObjectType != "" && step.ObjectType != event.Type {
			return false
		}
		if len(step.ObjectIDs) > 0 {
			return containsValue(step.ObjectIDs, event.ID)
		}
		return true
	}
	return false
}

// StepNodeID derives the node id for a step/content combination:
// gateType-value-contentID for belief gates,
// gateType-objectType-verb-contentID for action gates.
func (s *EpinetTrackingService) StepNodeID(step analytics.EpinetStep, contentID string) string {
	parts := []string{step.GateType}
	switch step.GateType {
	case analytics.GateBelief, analytics.GateIdentifyAs:
		if len(step.Values) > 0 {
			parts = append(parts, step.Values[0])
		}
	case analytics.GateCommitmentAction, analytics.GateConversionAction:
		parts = append(parts, step.ObjectType)
		if len(step.Values) > 0 {
			parts = append(parts, step.Values[0])
		}
	}
	parts = append(parts, contentID)
	return strings.Join(parts, "-")
}

// EventNodeID derives the node id for a real-time event.
func (s *EpinetTrackingService) EventNodeID(event events.Event) string {
	if event.IsBelief() {
		if event.Object != "" {
			return fmt.Sprintf("identifyAs-%s-%s", event.Object, event.ID)
		}
		return fmt.Sprintf("belief-%s-%s", event.Verb, event.ID)
	}
	return fmt.Sprintf("commitmentAction-%s-%s-%s", event.Type, event.Verb, event.ID)
}

// StepNodeName builds the human-readable name for a step node.
func (s *EpinetTrackingService) StepNodeName(step analytics.EpinetStep, contentID string, titles map[string]string) string {
	switch step.GateType {
	case analytics.GateBelief:
		return "Believes: " + stepLabel(step)
	case analytics.GateIdentifyAs:
		return "Identifies as: " + stepLabel(step)
	case analytics.GateCommitmentAction, analytics.GateConversionAction:
		verb := ""
		if len(step.Values) > 0 {
			verb = step.Values[0]
		}
		return verb + ": " + contentTitle(contentID, titles)
	}
	return stepLabel(step)
}

// EventNodeName builds the human-readable name for a real-time event node.
func (s *EpinetTrackingService) EventNodeName(event events.Event, titles map[string]string) string {
	if event.IsBelief() {
		if event.Object != "" {
			return "Identifies as: " + event.Object
		}
		return "Believes: " + event.Verb
	}
	return event.Verb + ": " + contentTitle(event.ID, titles)
}

// FindUserPreviousNode scans the current hour then the immediately preceding
// hour only for any node the visitor has touched, preferring the current
// hour. The two-hour bound keeps the lookup O(1) against the 28-day history.
func (s *EpinetTrackingService) FindUserPreviousNode(tenantCtx *tenant.Context, epinetID, fingerprintID string) string {
	store := tenantCtx.CacheManager.Analytics()
	currentHour := analytics.CurrentHourKey()

	hourKeys := []string{currentHour}
	if prev, err := analytics.PreviousHourKey(currentHour); err == nil {
		hourKeys = append(hourKeys, prev)
	}

	for _, hourKey := range hourKeys {
		bin, exists := store.GetEpinetBin(tenantCtx.TenantID, epinetID, hourKey)
		if !exists {
			continue
		}
		for nodeID, stepData := range bin.Steps {
			if stepData.Visitors[fingerprintID] {
				return nodeID
			}
		}
	}
	return ""
}

// UpdateEpinetHourlyData records a visitor on a node in the current hour and,
// when the visitor arrived from a different node, the transition between them.
func (s *EpinetTrackingService) UpdateEpinetHourlyData(tenantCtx *tenant.Context, fingerprintID, epinetID, nodeID, nodeName, fromNodeID string) {
	store := tenantCtx.CacheManager.Analytics()
	currentHour := analytics.CurrentHourKey()

	bin := store.GetOrCreateEpinetBin(tenantCtx.TenantID, epinetID, currentHour)

	stepData, exists := bin.Steps[nodeID]
	if !exists {
		stepData = &analytics.HourlyEpinetStepData{
			Visitors: make(map[string]bool),
			Name:     nodeName,
		}
		bin.Steps[nodeID] = stepData
	}
	stepData.Visitors[fingerprintID] = true

	if fromNodeID != "" && fromNodeID != nodeID {
		toNodes, exists := bin.Transitions[fromNodeID]
		if !exists {
			toNodes = make(map[string]*analytics.HourlyEpinetTransitionData)
			bin.Transitions[fromNodeID] = toNodes
		}
		transition, exists := toNodes[nodeID]
		if !exists {
			transition = &analytics.HourlyEpinetTransitionData{Visitors: make(map[string]bool)}
			toNodes[nodeID] = transition
		}
		transition.Visitors[fingerprintID] = true
	}
}

// ProcessEpinetEvent matches one event against every configured funnel and
// records matching steps and transitions. Errors are logged, never returned:
// epinet tracking must stay side-effect isolated from the request path.
func (s *EpinetTrackingService) ProcessEpinetEvent(ctx context.Context, tenantCtx *tenant.Context, event events.Event, fingerprintID string) {
	epinets, err := tenantCtx.ContentRepo().ActiveEpinets(ctx)
	if err != nil {
		s.logger.Analytics().Error("Failed to load epinets for event tracking",
			"tenantId", tenantCtx.TenantID, "error", err)
		return
	}
	if len(epinets) == 0 {
		return
	}

	titles, err := tenantCtx.ContentRepo().ContentTitleMap(ctx)
	if err != nil {
		s.logger.Analytics().Error("Failed to load content titles for event tracking",
			"tenantId", tenantCtx.TenantID, "error", err)
		titles = map[string]string{}
	}

	for _, epinet := range epinets {
		for _, step := range epinet.Steps {
			if !s.MatchEventToStep(event, step) {
				continue
			}
			previousNodeID := s.FindUserPreviousNode(tenantCtx, epinet.ID, fingerprintID)
			nodeID := s.EventNodeID(event)
			nodeName := s.EventNodeName(event, titles)
			s.UpdateEpinetHourlyData(tenantCtx, fingerprintID, epinet.ID, nodeID, nodeName, previousNodeID)
		}
	}
}

// AddObjectToEpinetStep appends an object id to a commitment or conversion
// step's objectIds if absent, persisting the updated step list. Idempotent.
func (s *EpinetTrackingService) AddObjectToEpinetStep(ctx context.Context, tenantCtx *tenant.Context, epinetID, stepID, objectID string) error {
	contentRepo := tenantCtx.ContentRepo()
	epinets, err := contentRepo.ActiveEpinets(ctx)
	if err != nil {
		return fmt.Errorf("failed to load epinets: %w", err)
	}

	var epinet *analytics.EpinetConfig
	for _, candidate := range epinets {
		if candidate.ID == epinetID {
			epinet = candidate
			break
		}
	}
	if epinet == nil {
		return nil
	}

	for i := range epinet.Steps {
		step := &epinet.Steps[i]
		identifier := step.GateType + "-" + strings.ReplaceAll(step.Title, " ", "_")
		if !strings.HasPrefix(stepID, identifier) {
			continue
		}
		if step.GateType != analytics.GateCommitmentAction && step.GateType != analytics.GateConversionAction {
			return nil
		}
		if containsValue(step.ObjectIDs, objectID) {
			return nil
		}
		step.ObjectIDs = append(step.ObjectIDs, objectID)
		return contentRepo.SaveEpinetSteps(ctx, epinetID, epinet.Steps)
	}
	return nil
}

func containsValue(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func stepLabel(step analytics.EpinetStep) string {
	if step.Title != "" {
		return step.Title
	}
	return strings.Join(step.Values, "/")
}

func contentTitle(contentID string, titles map[string]string) string {
	if title, ok := titles[contentID]; ok && title != "" {
		return title
	}
	return "Unknown Content"
}
