package domain

import (
	"maps"
	"time"
)

// =============================================================================
// Project Stages
// =============================================================================

// Stage is one step of an installation project. The labels are the ones the
// business uses with its customers and utilities, and they double as keys of
// Client.StageDates, so they must never be renamed.
type Stage string

const (
	StageDataCollection        Stage = "Coleta de Dados do Cliente"
	StageConsumptionAnalysis   Stage = "Análise do consumo e viabilidade"
	StageSystemSizing          Stage = "Dimensionamento do sistema"
	StageQuoteApproved         Stage = "Orçamento Aprovado"
	StageSiteVisit             Stage = "Visita Técnica"
	StageTechnicalAnalysis     Stage = "Análise Técnica"
	StageInDesign              Stage = "Em Projeto"
	StageDesignAndRegistration Stage = "Projeto técnico e registro"
	StageSentToUtility         Stage = "Envio Para a Concessionaria"
	StageUtilityProtocol       Stage = "Protocolo da Concessionaria"
	StageAwaitingUtility       Stage = "Aguardando a Concessionaria"
	StageHomologation          Stage = "Em Homologação"
	StageInstallation          Stage = "Instalação e testes finais"
	StageAwaitingInspection    Stage = "Aguardando Vistoria"
	StageInspectionDone        Stage = "Vistoria Realizada"
	StageCompleted             Stage = "Concluído"
	StageMonitoring            Stage = "Monitoramento e manutenção contínua"
)

// Stages lists every stage in project order.
var Stages = []Stage{
	StageDataCollection,
	StageConsumptionAnalysis,
	StageSystemSizing,
	StageQuoteApproved,
	StageSiteVisit,
	StageTechnicalAnalysis,
	StageInDesign,
	StageDesignAndRegistration,
	StageSentToUtility,
	StageUtilityProtocol,
	StageAwaitingUtility,
	StageHomologation,
	StageInstallation,
	StageAwaitingInspection,
	StageInspectionDone,
	StageCompleted,
	StageMonitoring,
}

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// Index returns the position of s in Stages, or -1 if s is not a stage.
func (s Stage) Index() int {
	for i, stage := range Stages {
		if stage == s {
			return i
		}
	}
	return -1
}

// IsValid returns true if the stage is one of the recognized labels.
func (s Stage) IsValid() bool {
	return s.Index() >= 0
}

// SetStatus moves a client to a new stage and records today as the date the
// stage was entered. Moving backwards is allowed and keeps the dates of later
// stages; re-entering a stage overwrites its date. The input record is not
// modified.
func SetStatus(c Client, status Stage, today time.Time) (Client, error) {
	if !status.IsValid() {
		return c, Invalid("client.set_status", "status is not a recognized project stage")
	}

	dates := make(map[Stage]string, len(c.StageDates)+1)
	maps.Copy(dates, c.StageDates)
	dates[status] = FormatDate(today)

	c.Status = status
	c.StageDates = dates
	return c, nil
}

// =============================================================================
// Timeline
// =============================================================================

// TimelineStep is one stage of a client's progress timeline.
type TimelineStep struct {
	Stage     Stage  `json:"stage"`
	Completed bool   `json:"completed"`
	Active    bool   `json:"active"`
	Date      string `json:"date,omitempty"`
}

// legacyStageDate maps the three stages that predate StageDates to the
// milestone field that used to hold their date.
var legacyStageDate = map[Stage]func(c *Client) string{
	StageHomologation:       func(c *Client) string { return c.HomologationEntryDate },
	StageAwaitingInspection: func(c *Client) string { return c.UtilityResponseDate },
	StageCompleted:          func(c *Client) string { return c.InspectionDate },
}

// Timeline returns every stage in order, flagged relative to the client's
// current status. Stages up to and including the current one are completed;
// the current one is also active. A status outside the vocabulary leaves
// every stage pending.
func Timeline(c Client) []TimelineStep {
	current := c.Status.Index()
	steps := make([]TimelineStep, len(Stages))
	for i, stage := range Stages {
		date := c.StageDates[stage]
		if date == "" {
			if legacy, ok := legacyStageDate[stage]; ok {
				date = legacy(&c)
			}
		}
		steps[i] = TimelineStep{
			Stage:     stage,
			Completed: i <= current,
			Active:    i == current,
			Date:      date,
		}
	}
	return steps
}
