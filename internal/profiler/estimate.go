package profiler

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/BerylCAtieno/customer-persona-agent/internal/errs"
	"github.com/BerylCAtieno/customer-persona-agent/internal/extract"
	"github.com/BerylCAtieno/customer-persona-agent/internal/models"
)

// EstimateK asks the model how many clusters the sampled customers fall into.
func (p *Profiler) EstimateK(ctx context.Context, sample []models.Record) (models.KEstimate, error) {
	prompt, err := buildEstimatePrompt(sample)
	if err != nil {
		return models.KEstimate{}, err
	}
	text, err := p.call(ctx, "estimate k", prompt)
	if err != nil {
		return models.KEstimate{}, err
	}
	return p.parseEstimate(text)
}

func (p *Profiler) parseEstimate(text string) (models.KEstimate, error) {
	obj, err := extract.Object(text)
	if err != nil {
		return models.KEstimate{}, err
	}

	raw, ok := obj["estimated_k"]
	if !ok {
		return models.KEstimate{}, &errs.MalformedResponseError{Reason: `missing "estimated_k"`, Raw: text}
	}
	num, ok := raw.(json.Number)
	if !ok {
		return models.KEstimate{}, &errs.MalformedResponseError{Reason: `"estimated_k" is not a number`, Raw: text}
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) {
		return models.KEstimate{}, &errs.MalformedResponseError{Reason: fmt.Sprintf(`"estimated_k" %s is not a whole number`, num), Raw: text}
	}
	if f < 1 {
		return models.KEstimate{}, &errs.MalformedResponseError{Reason: fmt.Sprintf(`"estimated_k" %s is below 1`, num), Raw: text}
	}
	if f > math.MaxInt32 {
		return models.KEstimate{}, &errs.MalformedResponseError{Reason: fmt.Sprintf(`"estimated_k" %s is out of range`, num), Raw: text}
	}
	if p.maxK > 0 && f > float64(p.maxK) {
		return models.KEstimate{}, &errs.MalformedResponseError{Reason: fmt.Sprintf(`"estimated_k" %s exceeds the limit of %d`, num, p.maxK), Raw: text}
	}

	est := models.KEstimate{K: int(f)}
	if r, ok := obj["reasoning"]; ok && r != nil {
		s, ok := r.(string)
		if !ok {
			return models.KEstimate{}, &errs.MalformedResponseError{Reason: `"reasoning" is not a string`, Raw: text}
		}
		est.Reasoning = s
	}
	return est, nil
}

func buildEstimatePrompt(sample []models.Record) (string, error) {
	data, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode data sample: %w", err)
	}
	return fmt.Sprintf(`You are an expert data scientist. I am about to perform K-Means clustering on a dataset of customers. Here is a sample of the data (in JSON format):

DATA SAMPLE:
%s

Based on this sample, make an educated guess for the optimal number of clusters (k). Consider the ranges and potential groupings in the data. Briefly explain your reasoning.

Respond ONLY with a JSON object with the keys "estimated_k" (a number) and "reasoning" (a string).

Example Response: {"estimated_k": 3, "reasoning": "The 'total_spent' data seems to fall into three distinct groups: low, medium, and high, making k=3 a logical starting point."}`, data), nil
}
