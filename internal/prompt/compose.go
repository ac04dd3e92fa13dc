// Package prompt renders variable summaries into the natural-language request
// sent to a completion model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/datavizard/internal/summary"
)

// DatasetName is how generated code must refer to the dataset.
const DatasetName = "df"

// Compose renders one numbered paragraph per variable followed by the closing
// instruction block. The output depends only on its arguments.
func Compose(vars []summary.VariableSummary, rowCount int, notes string) string {
	var b strings.Builder
	for i, v := range vars {
		b.WriteString(paragraph(i+1, v, rowCount))
		b.WriteString("\n\n")
	}
	b.WriteString(trailer(vars, notes))
	return b.String()
}

// ComposeSummary is Compose over s.Variables.
func ComposeSummary(s *summary.Summary, rowCount int, notes string) string {
	if s == nil {
		return Compose(nil, rowCount, notes)
	}
	return Compose(s.Variables, rowCount, notes)
}

func paragraph(k int, v summary.VariableSummary, rowCount int) string {
	head := fmt.Sprintf("Variable #%d is %s. It consists of %s data and it has %d datapoints.", k, v.Name, v.Kind, rowCount)
	switch v.Kind {
	case summary.Numeric:
		st := v.Numeric
		if st == nil {
			st = &summary.NumericStats{}
		}
		return fmt.Sprintf("%s This variable has a mean of %s, standard deviation of %s, minimum of %s, and a maximum of %s.",
			head, formatMean(st.Mean), formatWhole(st.Std), formatWhole(st.Min), formatWhole(st.Max))
	case summary.Categorical:
		n := 0
		if v.Categorical != nil {
			n = v.Categorical.NUnique
		}
		return fmt.Sprintf("%s There are %d unique categories.", head, n)
	case summary.Datetime:
		st := v.Datetime
		if st == nil {
			st = &summary.DatetimeStats{}
		}
		return fmt.Sprintf("%s The values range from a minimum of %s to a maximum of %s, with %d unique values.",
			head, formatInstant(st.Min), formatInstant(st.Max), st.NUnique)
	}
	return head
}

func trailer(vars []summary.VariableSummary, notes string) string {
	var b strings.Builder
	if len(vars) == 0 {
		b.WriteString("No variables were summarized. ")
	} else {
		names := make([]string, len(vars))
		for i, v := range vars {
			names[i] = v.Name
		}
		fmt.Fprintf(&b, "The variables described above are: %s. ", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "Please write three independent visualizations of these variables as three separate outputs. "+
		"Put each one in its own ```python code block, and refer to the dataset as the pandas DataFrame named %s in every snippet. ", DatasetName)
	fmt.Fprintf(&b, "Here are a few additional notes for guidance: <%s>", notes)
	return b.String()
}

// ComposeFollowUp asks the model to improve previously generated
// visualization code according to feedback.
func ComposeFollowUp(code, feedback string) string {
	return fmt.Sprintf("Following is a piece of python code for visualizations: ```\n%s\n```\n\n"+
		"Your job is to improve these visualizations based on the following feedback - ```%s```\n"+
		"Keep referring to the dataset as %s and return the full updated code in a ```python code block.",
		strings.TrimSpace(code), strings.TrimSpace(feedback), DatasetName)
}
