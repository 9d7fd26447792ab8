package assistant

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/urbanize/urbanize-backend/internal/gateway/traffic"
)

// LatLng is the {lat, lng} pair the planning UI posts.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ZoneSummary is the subset of a zone the optimization prompt uses.
type ZoneSummary struct {
	Type     string  `json:"type"`
	Distance float64 `json:"distance"`
	Name     string  `json:"name,omitempty"`
	Area     float64 `json:"area,omitempty"`
}

// TrafficSummary is the traffic reading as posted with an optimization request.
type TrafficSummary struct {
	Congestion           string  `json:"congestion"`
	CurrentSpeed         float64 `json:"currentSpeed"`
	FreeFlowSpeed        float64 `json:"freeFlowSpeed"`
	CongestionPercentage float64 `json:"congestionPercentage"`
}

// LandUseDistribution is area per land-use category in square meters.
type LandUseDistribution struct {
	Residential  float64 `json:"residential"`
	Commercial   float64 `json:"commercial"`
	Industrial   float64 `json:"industrial"`
	Green        float64 `json:"green"`
	Construction float64 `json:"construction"`
	Total        float64 `json:"total"`
}

// ReportSummary is a citizen report as quoted to the model.
type ReportSummary struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// OptimizationInput is everything known about a selected point.
type OptimizationInput struct {
	Location            LatLng               `json:"location"`
	LocationName        string               `json:"locationName,omitempty"`
	NearbyZones         []ZoneSummary        `json:"nearbyZones"`
	AQI                 float64              `json:"aqi,omitempty"`
	AQICategory         string               `json:"aqiCategory,omitempty"`
	Traffic             *TrafficSummary      `json:"traffic,omitempty"`
	LandUseDistribution *LandUseDistribution `json:"landUseDistribution,omitempty"`
	Reports             []ReportSummary      `json:"reports"`
}

// TrafficPair holds the current and predicted flow segments for one point. Either may
// be nil when the provider had nothing.
type TrafficPair struct {
	Current  *traffic.FlowSegment `json:"current"`
	Future   *traffic.FlowSegment `json:"future"`
	Location LatLng               `json:"location"`
}

// LandUseCount is one row of a ZoneAnalysis.
type LandUseCount struct {
	Type    string
	Count   int
	Nearest float64
}

// ZoneAnalysis summarizes a zone list for prompting.
type ZoneAnalysis struct {
	Summary    string
	Facilities []string
	LandUse    []LandUseCount
	TypeCount  map[string]int
}

var facilityTypes = []string{"school", "hospital", "park", "market", "library", "clinic", "pharmacy"}

var title = cases.Title(language.English)

// AnalyzeZones counts zone types, picks out named facilities and ranks land uses by
// count. zones are expected nearest first.
func AnalyzeZones(zones []ZoneSummary) ZoneAnalysis {
	za := ZoneAnalysis{TypeCount: map[string]int{}}
	var order []string
	nearest := map[string]float64{}

	for _, z := range zones {
		if _, seen := za.TypeCount[z.Type]; !seen {
			order = append(order, z.Type)
			nearest[z.Type] = z.Distance
		}
		za.TypeCount[z.Type]++

		if z.Name != "" && isFacility(z) && len(za.Facilities) < 10 {
			za.Facilities = append(za.Facilities, fmt.Sprintf("%s (%s, %gm away)", z.Name, z.Type, z.Distance))
		}
	}

	for _, t := range order {
		za.LandUse = append(za.LandUse, LandUseCount{
			Type:    strings.Replace(t, "_", " ", 1),
			Count:   za.TypeCount[t],
			Nearest: nearest[t],
		})
	}
	slices.SortStableFunc(za.LandUse, func(a, b LandUseCount) int { return b.Count - a.Count })
	if len(za.LandUse) > 10 {
		za.LandUse = za.LandUse[:10]
	}

	if len(zones) == 0 {
		za.Summary = "This appears to be a less-developed or rural area with minimal mapped infrastructure."
		return za
	}
	var dominant []string
	for _, lu := range za.LandUse[:min(3, len(za.LandUse))] {
		dominant = append(dominant, fmt.Sprintf("%s (%d)", lu.Type, lu.Count))
	}
	za.Summary = fmt.Sprintf("This area is primarily characterized by: %s. Total %d zones detected.",
		strings.Join(dominant, ", "), len(zones))
	return za
}

func isFacility(z ZoneSummary) bool {
	name := strings.ToLower(z.Name)
	for _, t := range facilityTypes {
		if strings.Contains(z.Type, t) || strings.Contains(name, t) {
			return true
		}
	}
	return false
}

// OptimizationPrompt renders the urban-optimization request.
func OptimizationPrompt(in OptimizationInput) string {
	za := AnalyzeZones(in.NearbyZones)
	var b strings.Builder

	b.WriteString("You are an expert urban planner helping improve quality of life for residents. ")
	b.WriteString("Analyze this location and provide practical, people-focused infrastructure recommendations.\n\n")

	b.WriteString("**LOCATION CONTEXT:**\n")
	fmt.Fprintf(&b, "Coordinates: %.4f°N, %.4f°E\n", in.Location.Lat, in.Location.Lng)
	if in.LocationName != "" {
		fmt.Fprintf(&b, "Area: %s\n", in.LocationName)
	}

	fmt.Fprintf(&b, "\n**ZONE ANALYSIS (%d zones detected within 500m):**\n%s\n\n", len(in.NearbyZones), za.Summary)
	b.WriteString("**Nearby Facilities:**\n")
	if len(za.Facilities) == 0 {
		b.WriteString("- No major facilities detected nearby\n")
	}
	for _, f := range za.Facilities {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\n**Land Use Breakdown:**\n")
	for _, lu := range za.LandUse {
		fmt.Fprintf(&b, "- %s: %d zones (nearest: %gm away)\n", title.String(lu.Type), lu.Count, lu.Nearest)
	}
	if d := in.LandUseDistribution; d != nil && d.Total > 0 {
		fmt.Fprintf(&b, "- Mapped area: %.0f m² total; residential %.0f, commercial %.0f, industrial %.0f, green %.0f, construction %.0f\n",
			d.Total, d.Residential, d.Commercial, d.Industrial, d.Green, d.Construction)
	}

	b.WriteString("\n**ENVIRONMENTAL CONDITIONS:**\n")
	if in.AQI > 0 {
		fmt.Fprintf(&b, "Air Quality Index: %g", in.AQI)
		if in.AQICategory != "" {
			fmt.Fprintf(&b, " (%s)", in.AQICategory)
		}
		fmt.Fprintf(&b, "\nHealth impact: %s\n", aqiImpact(in.AQI))
	} else {
		b.WriteString("Air Quality Index: N/A\n")
	}

	b.WriteString("\n**TRAFFIC CONDITIONS:**\n")
	if t := in.Traffic; t != nil {
		fmt.Fprintf(&b, "- Congestion Level: %s (%g%%)\n", t.Congestion, t.CongestionPercentage)
		fmt.Fprintf(&b, "- Current Speed: %g km/h (free flow %g km/h)\n", t.CurrentSpeed, t.FreeFlowSpeed)
		fmt.Fprintf(&b, "- Impact on Residents: %s\n", trafficImpact(t.CongestionPercentage))
	} else {
		b.WriteString("No traffic data available (area may not be on major roads)\n")
	}

	b.WriteString("\n**COMMUNITY FEEDBACK:**\n")
	if len(in.Reports) == 0 {
		b.WriteString("- No recent citizen reports for this area\n")
	}
	for i, r := range in.Reports {
		fmt.Fprintf(&b, "%d. %s (%s priority): %q\n", i+1, strings.ToUpper(r.Category), r.Priority, r.Description)
	}

	b.WriteString(optimizationTask)
	return b.String()
}

const optimizationTask = `
---

## YOUR TASK

Provide an infrastructure plan that directly improves residents' daily lives. Use these sections:

## UNDERSTANDING THE COMMUNITY
Who lives, works and visits here, based on the detected zones, and what they need.

## TOP 3 URGENT PRIORITIES
For each: the problem, who is affected, why it is urgent, and one quick win (0-6 months).

## PEOPLE-CENTERED INFRASTRUCTURE PLAN
4-6 improvements with what to build, exact location relative to detected zones, who benefits,
cost estimate, timeline, maintenance and funding sources.

## ENVIRONMENTAL IMPROVEMENTS
Air, heat, noise, drainage and green space, described by what residents will notice.

## MOBILITY & ACCESSIBILITY
Safe walking routes, transit access, cycling, parking and traffic calming near schools and hospitals.

## BUDGET-FRIENDLY QUICK WINS
3-5 improvements under $50K each with immediate visible impact.

## IMPLEMENTATION TIMELINE
Phase 1 (0-6 months), Phase 2 (6-18 months), Phase 3 (18-36 months).

## CHALLENGES & SOLUTIONS
Likely opposition, technical risks and budget alternatives.

Use real numbers from the data above, address any citizen reports directly, and consider
children, the elderly, disabled and low-income residents.`

func aqiImpact(aqi float64) string {
	switch {
	case aqi > 200:
		return "VERY UNHEALTHY - immediate health risk for everyone"
	case aqi > 150:
		return "UNHEALTHY - all residents affected, vulnerable groups at serious risk"
	case aqi > 100:
		return "MODERATE - sensitive groups (children, elderly, asthma patients) affected"
	default:
		return "GOOD - minimal health concerns"
	}
}

func trafficImpact(pct float64) string {
	switch {
	case pct > 50:
		return "significant daily delays"
	case pct > 25:
		return "moderate delays during peak hours"
	default:
		return "traffic flows smoothly"
	}
}

// NoTrafficDataText is returned by PredictCongestion when no current reading exists.
func NoTrafficDataText(location string) string {
	return fmt.Sprintf(`I apologize, but I couldn't retrieve current traffic data for %s. This could be because:
- The location is not on a major road network
- Traffic data is not available for this area
- There was an API connectivity issue

Please try selecting a point on a main road or highway for accurate traffic predictions.`, location)
}

// CongestionPrompt renders the congestion-prediction request. tp.Current must be set.
func CongestionPrompt(location string, tp TrafficPair) string {
	cur := tp.Current
	var b strings.Builder

	b.WriteString("As an expert urban planning AI, analyze the following traffic data and provide a comprehensive congestion prediction.\n\n")
	fmt.Fprintf(&b, "**Location:** %s\n\n", location)

	b.WriteString("**Current Traffic Conditions:**\n")
	fmt.Fprintf(&b, "- Current Speed: %s\n", orUnavailable(cur.CurrentSpeed, "km/h"))
	fmt.Fprintf(&b, "- Free Flow Speed: %s\n", orUnavailable(cur.FreeFlowSpeed, "km/h"))
	fmt.Fprintf(&b, "- Current Travel Time: %s\n", orUnavailable(cur.CurrentTravelTime, "seconds"))
	fmt.Fprintf(&b, "- Free Flow Travel Time: %s\n", orUnavailable(cur.FreeFlowTravelTime, "seconds"))
	fmt.Fprintf(&b, "- Confidence Level: %s\n", confidence(cur.Confidence))
	if cur.RoadClosure {
		b.WriteString("- Road Closure: Yes - Road is closed\n\n")
	} else {
		b.WriteString("- Road Closure: No - Road is open\n\n")
	}

	if f := tp.Future; f != nil {
		b.WriteString("**Predicted Future Traffic Conditions:**\n")
		fmt.Fprintf(&b, "- Predicted Speed: %s\n", orUnavailable(f.CurrentSpeed, "km/h"))
		fmt.Fprintf(&b, "- Predicted Travel Time: %s\n", orUnavailable(f.CurrentTravelTime, "seconds"))
		fmt.Fprintf(&b, "- Confidence Level: %s\n\n", confidence(f.Confidence))
	} else {
		b.WriteString("**Note:** Future prediction data is not available for this location.\n\n")
	}

	b.WriteString("Please provide a detailed analysis with the following sections:\n\n")
	b.WriteString("1. **Current Congestion Analysis**: Assess the current situation from the speed differential and travel times.\n\n")
	if tp.Future != nil {
		b.WriteString("2. **Future Congestion Prediction**: Predict how traffic will change based on the predictive data. Will conditions improve, worsen, or remain stable?\n\n")
	} else {
		b.WriteString("2. **Future Congestion Prediction**: Based on current conditions, predict likely traffic patterns for the next few hours.\n\n")
	}
	b.WriteString("3. **Key Insights**: Highlight important trends. Calculate the congestion level as ((Free Flow Speed - Current Speed) / Free Flow Speed) × 100.\n\n")
	b.WriteString("4. **Urban Planning Recommendations**: Suggest 2-3 specific, actionable interventions to improve traffic flow in this area.\n\n")
	b.WriteString("5. **Timeline & Patterns**: Indicate when traffic is likely to be best and worst in this area.")
	return b.String()
}

func orUnavailable(v float64, unit string) string {
	if v == 0 {
		return "Data unavailable"
	}
	return fmt.Sprintf("%d %s", int(math.Round(v)), unit)
}

func confidence(v float64) string {
	if v == 0 {
		return "Not specified"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// OptimizePrompt renders the short free-form optimization request.
func OptimizePrompt(area string, data any) string {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte("null")
	}
	return fmt.Sprintf("Analyze this area and give 3-5 urban improvement actions:\nArea: %s\nData: %s", area, raw)
}

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
