package agents

import (
	"time"

	"adsdash/agent-app/tools"
)

type FunnelParams struct {
	SegmentColumns []string `json:"segment_columns,omitempty" validate:"max=4,dive,oneof=campaign ad_set ad_name headline objective age gender region device audience"`
}

type FunnelStageResult struct {
	Name           string   `json:"name"`
	Count          float64  `json:"count" validate:"gte=0"`
	ConversionRate float64  `json:"conversion_rate"`
	DropRate       float64  `json:"drop_rate"`
	Benchmark      *float64 `json:"benchmark,omitempty"`
	Note           string   `json:"note,omitempty"`
}

type FunnelSegmentInsight struct {
	SegmentName      string   `json:"segment_name"`
	BestStage        string   `json:"best_stage"`
	BestStageMetric  float64  `json:"best_stage_metric"`
	WorstStage       string   `json:"worst_stage"`
	WorstStageMetric float64  `json:"worst_stage_metric"`
	Opportunities    []string `json:"opportunities,omitempty"`
}

type FunnelAction struct {
	Priority       string   `json:"priority"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	TargetStage    string   `json:"target_stage"`
	ExpectedImpact string   `json:"expected_impact"`
	KPIs           []string `json:"kpis,omitempty"`
	Steps          []string `json:"steps,omitempty"`
}

type ExperimentSuggestion struct {
	Name           string `json:"name"`
	Hypothesis     string `json:"hypothesis"`
	Metric         string `json:"metric"`
	Audience       string `json:"audience,omitempty"`
	DurationDays   *int   `json:"duration_days,omitempty"`
	ExpectedResult string `json:"expected_result,omitempty"`
}

type FunnelSummary struct {
	OverallConversionRate float64  `json:"overall_conversion_rate" validate:"gte=0,lte=100"`
	MainBottleneck        string   `json:"main_bottleneck"`
	HealthScore           int      `json:"health_score" validate:"gte=0,lte=100" jsonschema:"minimum=0,maximum=100"`
	KeyFindings           []string `json:"key_findings,omitempty"`
	WatchMetrics          []string `json:"watch_metrics,omitempty"`
}

type FunnelResult struct {
	Summary         FunnelSummary          `json:"summary"`
	Stages          []FunnelStageResult    `json:"stages" validate:"dive"`
	SegmentInsights []FunnelSegmentInsight `json:"segment_insights"`
	Actions         []FunnelAction         `json:"actions"`
	Experiments     []ExperimentSuggestion `json:"experiments"`
}

var FunnelAnalysis = &Definition[FunnelParams, FunnelResult]{
	AgentName:      "funnel_analysis",
	Summary:        "Finds the conversion funnel's bottleneck overall and per audience segment.",
	Tier:           Balanced,
	KnowledgeQuery: "轉換漏斗 優化 案例",
	System: `你是電商轉換漏斗分析師。用工具取得從觸及到購買各階段的人數與轉換率，以及各分群的最佳與最差階段，
找出主要瓶頸並給出漏斗健康度（0-100）、優化行動與實驗建議。以繁體中文回答。`,
	Prompt: `分群欄位：{{segment_columns}}
請分析轉換漏斗並提出改善方案。`,
	Tools: []string{"compute_funnel_stages", "analyze_funnel_segments", "load_knowledge_examples"},
	Prepare: func(p *FunnelParams, s *tools.Settings) {
		if len(p.SegmentColumns) == 0 {
			p.SegmentColumns = []string{"age", "gender"}
		}
		s.SegmentColumns = p.SegmentColumns
	},
}

type CreativePerformanceParams struct {
	GroupBy string `json:"group_by,omitempty" validate:"omitempty,oneof=campaign ad_set ad_name headline objective age gender region device audience"`
}

type CreativeMetricResult struct {
	Name        string   `json:"name"`
	Value       string   `json:"value"`
	ROAS        float64  `json:"roas"`
	CTR         float64  `json:"ctr"`
	CPA         *float64 `json:"cpa,omitempty"`
	Conversions float64  `json:"conversions"`
	Impressions float64  `json:"impressions"`
	Spend       float64  `json:"spend"`
}

type CreativeInsight struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	SupportingExamples []string `json:"supporting_examples,omitempty"`
}

type OptimizationIdea struct {
	Priority       string   `json:"priority"`
	FocusArea      string   `json:"focus_area"`
	ActionSteps    []string `json:"action_steps,omitempty"`
	ExpectedImpact string   `json:"expected_impact"`
	MetricsToWatch []string `json:"metrics_to_watch,omitempty"`
}

type CreativeExperiment struct {
	Name          string   `json:"name"`
	Hypothesis    string   `json:"hypothesis"`
	Variations    []string `json:"variations,omitempty"`
	PrimaryMetric string   `json:"primary_metric"`
	DurationDays  *int     `json:"duration_days,omitempty"`
}

type CreativeSummary struct {
	TopCreatives   []CreativeMetricResult `json:"top_creatives"`
	LowCreatives   []CreativeMetricResult `json:"low_creatives"`
	KeyFindings    []string               `json:"key_findings"`
	FatigueSignals []string               `json:"fatigue_signals,omitempty"`
}

type CreativePerformanceResult struct {
	Summary       CreativeSummary      `json:"summary"`
	Insights      []CreativeInsight    `json:"insights"`
	Optimizations []OptimizationIdea   `json:"optimizations"`
	Experiments   []CreativeExperiment `json:"experiments"`
}

var CreativePerformance = &Definition[CreativePerformanceParams, CreativePerformanceResult]{
	AgentName:      "creative_performance",
	Summary:        "Compares creatives by headline and segment to find winners, losers and fatigue.",
	Tier:           Balanced,
	KnowledgeQuery: "素材 成效 優化",
	System: `你是 Meta 廣告素材成效分析師。用工具取得各標題素材的表現與指定欄位的分群表現，
找出最佳與最差素材、疲乏訊號，並提出優化建議與素材實驗。以繁體中文回答。`,
	Prompt: `分群欄位：{{group_by}}
請整理素材成效摘要、洞察、優化建議與實驗。`,
	Tools: []string{"summarize_creatives", "fetch_segment_performance", "load_knowledge_examples"},
	Prepare: func(p *CreativePerformanceParams, s *tools.Settings) {
		if p.GroupBy == "" {
			p.GroupBy = "campaign"
		}
		s.GroupBy = p.GroupBy
	},
}

type CoreAudience struct {
	Age         string  `json:"age"`
	Gender      string  `json:"gender"`
	Interest    string  `json:"interest"`
	ROAS        float64 `json:"roas"`
	CTR         float64 `json:"ctr"`
	Spend       float64 `json:"spend"`
	Conversions float64 `json:"conversions"`
}

type ExpansionAudience struct {
	Title          string   `json:"title"`
	Similarity     string   `json:"similarity"`
	DemoProfile    string   `json:"demo_profile"`
	ExpectedROAS   string   `json:"expected_roas"`
	TestBudget     string   `json:"test_budget"`
	TestDuration   string   `json:"test_duration"`
	SuccessMetrics []string `json:"success_metrics,omitempty"`
	Priority       string   `json:"priority"`
}

type LookalikeStrategy struct {
	SourceAudience string   `json:"source_audience"`
	Similarity     string   `json:"similarity" jsonschema_description:"1%-10%"`
	Regions        []string `json:"regions,omitempty"`
	Rationale      string   `json:"rationale"`
	ExpectedScale  string   `json:"expected_scale"`
}

type WatchoutAudience struct {
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

type ExecutionWeek struct {
	Week  string   `json:"week"`
	Focus []string `json:"focus,omitempty"`
}

type AudienceSummary struct {
	HealthStatus       string   `json:"health_status"`
	KeyInsights        []string `json:"key_insights,omitempty"`
	RecommendedMetrics []string `json:"recommended_metrics,omitempty"`
}

type AudienceExpansionResult struct {
	Summary             AudienceSummary     `json:"summary"`
	CoreAudiences       []CoreAudience      `json:"core_audiences"`
	ExpansionAudiences  []ExpansionAudience `json:"expansion_audiences"`
	LookalikeStrategies []LookalikeStrategy `json:"lookalike_strategies"`
	WatchoutAudiences   []WatchoutAudience  `json:"watchout_audiences"`
	ExecutionPlan       []ExecutionWeek     `json:"execution_plan"`
}

var AudienceExpansion = &Definition[NoParams, AudienceExpansionResult]{
	AgentName:      "audience_expansion",
	Summary:        "Proposes new and lookalike audiences from the best-performing ones.",
	Tier:           Balanced,
	KnowledgeQuery: "受眾 擴展 策略",
	System: `你是 Meta 廣告受眾策略顧問。用工具取得高效受眾組合與受眾分布，
提出 5 到 8 個受眾擴展提案、Lookalike 策略、應避免的受眾與 30 天執行計畫（第 1 到 4 週）。以繁體中文回答。`,
	Prompt: `請根據現有受眾表現提出可執行的受眾擴展建議。`,
	Tools:  []string{"summarize_core_audiences", "fetch_audience_distribution", "load_knowledge_examples"},
}

type ReportParams struct {
	ReportType    string `json:"report_type,omitempty" validate:"omitempty,oneof=週報 月報 自訂" jsonschema:"enum=週報,enum=月報,enum=自訂"`
	CurrentStart  string `json:"current_start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	CurrentEnd    string `json:"current_end,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PreviousStart string `json:"previous_start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PreviousEnd   string `json:"previous_end,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type MetricComparison struct {
	Name          string   `json:"name"`
	CurrentValue  float64  `json:"current_value"`
	PreviousValue *float64 `json:"previous_value,omitempty"`
	ChangePercent *float64 `json:"change_percent,omitempty"`
}

type CampaignHighlight struct {
	Name        string   `json:"name"`
	Spend       float64  `json:"spend"`
	ROAS        float64  `json:"roas"`
	CTR         *float64 `json:"ctr,omitempty"`
	Conversions *float64 `json:"conversions,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

type ActionPlanItem struct {
	Priority       string `json:"priority"`
	Action         string `json:"action"`
	ExpectedImpact string `json:"expected_impact"`
	Timeline       string `json:"timeline"`
}

type StrategyRecommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ReportSummary struct {
	ReportType    string             `json:"report_type"`
	Period        string             `json:"period"`
	OverallStatus string             `json:"overall_status"`
	KeyInsights   []string           `json:"key_insights,omitempty"`
	Metrics       []MetricComparison `json:"metrics"`
}

type ReportResult struct {
	Summary    ReportSummary            `json:"summary"`
	Successes  []CampaignHighlight      `json:"successes"`
	Issues     []CampaignHighlight      `json:"issues"`
	ActionPlan []ActionPlanItem         `json:"action_plan"`
	Strategies []StrategyRecommendation `json:"strategies"`
}

var ReportGeneration = &Definition[ReportParams, ReportResult]{
	AgentName:      "report_generation",
	Summary:        "Writes a period report comparing the current and previous period.",
	Tier:           Balanced,
	KnowledgeQuery: "報告 重點 行動 建議",
	System: `你是為主管撰寫 Meta 廣告成效報告的分析師。用工具取得本期與前期指標、最佳與最差活動以及重要事件，
整理成結構清楚的報告，指標變化以百分比表示。以繁體中文回答。`,
	Prompt: `報告類型：{{report_type}}
本期：{{current_start}} 至 {{current_end}}
前期：{{previous_start}} 至 {{previous_end}}
請產出報告摘要、成功案例、問題、行動計畫與策略建議。`,
	Tools: []string{"compute_period_metrics", "campaign_performance", "detect_events", "load_knowledge_examples"},
	Prepare: func(p *ReportParams, s *tools.Settings) {
		if p.ReportType == "" {
			p.ReportType = "週報"
		}
		s.CurrentStart, s.CurrentEnd = parseDay(p.CurrentStart), parseDay(p.CurrentEnd)
		s.PreviousStart, s.PreviousEnd = parseDay(p.PreviousStart), parseDay(p.PreviousEnd)
		if p.CurrentStart == "" || p.CurrentEnd == "" {
			p.CurrentStart, p.CurrentEnd = "資料最後一天往前 7 天", "資料最後一天"
		}
		if p.PreviousStart == "" || p.PreviousEnd == "" {
			p.PreviousStart, p.PreviousEnd = "未指定", "未指定"
		}
	},
	Warn: func(p ReportParams) []string {
		if p.CurrentStart > p.CurrentEnd && p.CurrentEnd != "資料最後一天" {
			return []string{"本期開始日期晚於結束日期，本期將沒有資料"}
		}
		return nil
	},
}

func parseDay(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
