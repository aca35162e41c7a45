package classify

// Keyword tables mapping assay-name phrases to activity labels. Order
// matters twice over: the scan keeps the keyword found at the earliest
// character position, and on ties at the same position the keyword
// appearing first in this table wins. Versioned domain data; edit with
// care and keep the tie-break tests green.

type keywordGroup struct {
	label    string
	keywords []string
}

var keywordGroups = []keywordGroup{
	{LabelInhibitor, []string{
		"inhibition", "reversible inhibition", "time dependent inhibition",
		"inhibitory activity", "time-dependent inhibition", "time dependent irreversible inhibition",
		"inhibitory concentration", "inhibitory effect", "inhibitory potency",
		"concentration required to inhibit", "competitive inhibition", "cyp inhibition",
		"irreversible inhibition", "mechanism based inhibition", "mixed inhibition",
		"mixed type inhibition", "inhibitory constant", "antagonistic activity", "selectivity",
		"s1p4 agonists", "small molecule antagonists", "displacement", "mediated midazolam 1-hydroxylation",
		"time/nadph-dependent inhibition", "reversal inhibition", "mechanism-based inhibition",
		"mechanism based time dependent inhibition", "reversible competitive inhibition",
		"predictive competitive inhibition", "noncompetitive inhibition", "in vitro inhibitory",
		"in vitro inhibition", "inhibition of", "direct inhibition", "enzyme inhibition", "dndi",
		"inhibition assay",
	}},
	{LabelLigand, []string{
		"binding affinity", "spectral binding", "interaction with", "bind",
		"covalent binding affinity", "apparent binding affinity",
	}},
	{LabelInhibitorSubstrate, []string{
		"inhibitors and substrates",
	}},
	{LabelInhibitorInducerModulator, []string{
		"apoprotein formation", "panel assay", "eurofins-panlabs enzyme assay",
	}},
	{LabelSubstrate, []string{
		"drug metabolism", "prodrug", "metabolic", "oxidation", "substrate activity",
		"michaelis-menten", "metabolic stability", "bioactivation", "drug level",
		"enzyme-mediated drug depletion", "enzyme-mediated compound formation",
		"phenotyping", "activity of human recombinant cyp", "activity of recombinant cyp",
		"activity at cyp", "enzyme-mediated drug metabolism",
	}},
	{LabelInactivator, []string{
		"inactivator", "inactivation of", "mechanism based inactivation of", "inactivators",
		"metabolism dependent inactivation",
	}},
	{LabelActivator, []string{
		"assay for activators", "activation of", "activators of",
	}},
	{LabelInducer, []string{
		"induction of", "inducer", "inducers", "time-dependant induction",
	}},
}

// flattened scan order, with the label each keyword maps to
var orderedKeywords = func() []keywordLabel {
	var all []keywordLabel
	for _, g := range keywordGroups {
		for _, kw := range g.keywords {
			all = append(all, keywordLabel{keyword: kw, label: g.label})
		}
	}
	return all
}()

type keywordLabel struct {
	keyword string
	label   string
}
