package interaction

// defaultRules is the built-in interaction table. Tokens are stored
// lower-cased; matching is case-insensitive substring containment over
// medication names, so brand/strength suffixes still match.
var defaultRules = []Rule{
	{
		DrugA:       "nitroglycerin",
		DrugB:       "sildenafil",
		Severity:    SeverityHigh,
		Description: "Nitrates combined with PDE5 inhibitors can cause severe, potentially life-threatening hypotension.",
	},
	{
		DrugA:       "isosorbide",
		DrugB:       "sildenafil",
		Severity:    SeverityHigh,
		Description: "Isosorbide is a nitrate; co-administration with sildenafil risks profound blood pressure drop.",
	},
	{
		DrugA:       "nitroglycerin",
		DrugB:       "tadalafil",
		Severity:    SeverityHigh,
		Description: "Nitrates combined with tadalafil can cause severe hypotension lasting 24 hours or more.",
	},
	{
		DrugA:       "warfarin",
		DrugB:       "aspirin",
		Severity:    SeverityHigh,
		Description: "Warfarin with aspirin substantially increases bleeding risk, including gastrointestinal and intracranial bleeding.",
	},
	{
		DrugA:       "warfarin",
		DrugB:       "ibuprofen",
		Severity:    SeverityHigh,
		Description: "NSAIDs potentiate warfarin and irritate gastric mucosa, raising the risk of serious bleeding.",
	},
	{
		DrugA:       "lisinopril",
		DrugB:       "potassium",
		Severity:    SeverityModerate,
		Description: "ACE inhibitors taken with potassium supplements can cause hyperkalemia; monitor serum potassium.",
	},
	{
		DrugA:       "lisinopril",
		DrugB:       "spironolactone",
		Severity:    SeverityModerate,
		Description: "ACE inhibitors with potassium-sparing diuretics increase hyperkalemia risk, especially with renal impairment.",
	},
	{
		DrugA:       "sildenafil",
		DrugB:       "tamsulosin",
		Severity:    SeverityModerate,
		Description: "PDE5 inhibitors with alpha-blockers can cause orthostatic hypotension; separate dosing and titrate carefully.",
	},
	{
		DrugA:       "sildenafil",
		DrugB:       "clarithromycin",
		Severity:    SeverityModerate,
		Description: "Clarithromycin inhibits CYP3A4 and raises sildenafil exposure; start at the lowest sildenafil dose.",
	},
	{
		DrugA:       "simvastatin",
		DrugB:       "clarithromycin",
		Severity:    SeverityHigh,
		Description: "Clarithromycin markedly increases simvastatin levels with risk of myopathy and rhabdomyolysis; avoid the combination.",
	},
	{
		DrugA:       "metformin",
		DrugB:       "prednisone",
		Severity:    SeverityLow,
		Description: "Corticosteroids raise blood glucose and may blunt metformin control; monitor glucose during the course.",
	},
	{
		DrugA:       "levothyroxine",
		DrugB:       "calcium",
		Severity:    SeverityLow,
		Description: "Calcium reduces levothyroxine absorption; separate administration by at least four hours.",
	},
}

// Rules returns a copy of the built-in interaction table.
func Rules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}
