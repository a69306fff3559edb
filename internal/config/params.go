package config

// Param documents one recognised ShorelineS parameter.
type Param struct {
	Key         string
	Unit        string
	Required    bool
	Description string
}

var Params = []Param{
	{"reftime", "date", true, "simulation start"},
	{"endofsimulation", "date", true, "simulation end"},
	{"dt", "years", true, "model time step"},
	{"storageinterval", "days", true, "interval between stored outputs"},
	{"d", "m", false, "active profile height"},
	{"Hso", "m", false, "offshore significant wave height"},
	{"tper", "s", false, "wave period"},
	{"phiw0", "deg", false, "offshore wave direction"},
	{"spread", "deg", false, "directional spreading"},
	{"ds0", "m", false, "coastline grid spacing"},
	{"ddeep", "m", false, "offshore depth"},
	{"dnearshore", "m", false, "nearshore depth"},
	{"trform", "", false, "longshore transport formula"},
	{"b", "", false, "transport coefficient"},
	{"qscal", "", false, "transport scaling factor"},
	{"x_mc", "m", false, "initial coastline x coordinates"},
	{"y_mc", "m", false, "initial coastline y coordinates"},
	{"LDBcoastline", "path", false, "initial coastline file"},
	{"LDBnourish", "path", false, "nourishment polygon file"},
	{"fnorfile", "path", false, "nourishment schedule file"},
	{"outputdir", "path", false, "model output directory (created when missing)"},
	{"LDBplot", "", false, "plot layers, passed as a cell array"},
	{"extra", "", false, "other ShorelineS parameters, passed through"},
}
