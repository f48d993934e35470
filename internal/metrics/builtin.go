package metrics

// DefaultRegistry registers the full built-in calculator set. Registration
// conflicts here are programming errors and panic at startup.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	calcs := []*Calculator{
		accuracyCalc(),
		groupedAccuracy("accuracy_by_question_type", "questionType"),
		groupedAccuracy("accuracy_by_category", "category"),
		abstentionAccuracyCalc(),
		f1Calc(),
		bleu1Calc(),
		rougeLCalc(),
		mrrCalc(),
		fileMRRCalc(),
		avgRetrievalScoreCalc(),
		avgSearchLatencyCalc(),
		avgTotalLatencyCalc(),
		p95LatencyCalc(),
	}
	for _, k := range TopKs {
		calcs = append(calcs,
			precisionAtKCalc(k),
			recallAtKCalc(k),
			ndcgAtKCalc(k),
			successAtKCalc(k),
			fileRecallAtKCalc(k),
			iouAtKCalc(k),
		)
	}
	for _, c := range calcs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}
