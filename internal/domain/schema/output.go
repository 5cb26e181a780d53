package schema

// output is the BASGRA_NZ output table in engine write order.
var output = []string{
	ColYear, ColDOY,
	"DAVTMP", // C    avg daily temperature
	"CLV",    // gC/m2 leaf C
	"CLVD",   // gC/m2 dead leaf C
	"YIELD",  // t DM/ha harvested this step
	"CRES",   // gC/m2 reserves
	"CRT",    // gC/m2 roots
	"CST",    // gC/m2 stems
	"CSTUB",  // gC/m2 stubble
	"DRYSTOR",
	"Fdepth",
	"LAI",
	"LT50",
	"O2",
	"PHEN",
	"ROOTD",
	"Sdepth",
	"TANAER",
	"TILG",
	"TILV",
	"WAL",
	"WAPL",
	"WAPS",
	"WAS",
	"WETSTOR",
	"DM",
	"RES",
	"PHENCR",
	"NELLVG",
	"NELLVM",
	"SLA",
	"TILTOT",
	"FRTILG",
	"TILG1",
	"TILG2",
	"RDRT",
	"VERN",
	"CLITT",
	"CSOMF",
	"CSOMS",
	"NLITT",
	"NSOMF",
	"NSOMS",
	"NMIN",
	"PHOT",
	"RplantAer",
	"Rsoil",
	"NemissionN2O",
	"NemissionNO",
	"Nfert",
	"Ndep",
	"RWA",
	"NSH",
	"GNSH",
	"DNSH",
	"HARVNSH",
	"NCSH",
	"NCGSH",
	"NCDSH",
	"NCHARVSH",
	"fNgrowth",
	"RGRTV",
	"FSPOT",
	"RESNOR",
	"TV2TIL",
	"NSHNOR",
	"KNMAX",
	"KN",
	"DMLV",
	"DMST",
	"NSH_DMSH",
	"Nfert_TOT",
	"YIELD_TOT",
	"DM_MAX",
	"F_PROTEIN",
	"F_ASH",
	"F_WALL_DM",
	"F_WALL_DMSH",
	"F_WALL_LV",
	"F_WALL_ST",
	"F_DIGEST_DM",
	"F_DIGEST_DMSH",
	"F_DIGEST_LV",
	"F_DIGEST_ST",
	"F_DIGEST_WALL",
	"RDRS",
	"RAIN",
	"Tsurf",
	"SnowMelt",
	"DMLV_RM",
	"DMST_RM",
	"DMSTUB_RM",
	"BASAL",
	"HARVFR",
	"IRRIG",     // mm/d irrigation applied
	"WAFC",      // mm water in root zone at field capacity
	"IRR_TARG",  // fraction, irrigation target
	"IRR_TRIG",  // fraction, irrigation trigger
	"IRRIG_DEM", // mm irrigation demand
	"RYE_YIELD",
	"WEED_YIELD",
	"DM_RYE_RM",
	"DM_WEED_RM",
	"DMH_RYE",
	"DMH_WEED",
	"DMH",
	"WAWP",  // mm water at wilting point
	"MXPAW", // mm maximum profile available water
	"PAW",   // mm profile available water
	"RESEEDED",
	"PET",
}
