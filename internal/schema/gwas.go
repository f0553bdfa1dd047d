package schema

import "github.com/concordbio/concord/internal/domain"

// GWAS is the target schema for genome-wide association study summary
// statistics. Alias lists cover the header conventions of the common
// GWAS tooling (PLINK, BOLT-LMM, SAIGE, the GWAS Catalog exports).
func GWAS() *Schema {
	return &Schema{
		Name: "GWAS",
		Description: "Genome-wide association study data. This data type is used to store summary statistics from GWAS " +
			"studies. The data is typically stored in a tabular format with columns for the chromosome, " +
			"position, variant ID, effect allele, non-effect allele, effect size, standard error, p-value, and " +
			"effect allele frequency.",
		Columns: []ColumnSpec{
			{
				Name:     "dataset_id",
				Type:     StringType(),
				Required: true,
				Rules:    []Rule{FileStem{}},
			},
			{
				Name:     "trait_id",
				Type:     Entity(domain.AlgorithmRetrievalAndClassification, domain.EntityDisease),
				Required: true,
				Rules: []Rule{
					ExtractFromContext{Question: "What is the name of the disease that this GWAS study is investigating?"},
				},
			},
			{
				Name:     "num_samples",
				Type:     IntType(),
				Required: true,
				Aliases: []string{
					"N", "NMISS", "Nsample", "OBS_CT", "SS", "TotalSampleSize", "n",
					"num_samples", "sample_size",
				},
				Rules: []Rule{
					SumColumns{Columns: []string{"num_cases", "num_controls"}},
				},
			},
			{
				Name:     "num_cases",
				Type:     IntType(),
				Required: true,
				Aliases:  []string{"N_CASE", "ncase", "TotalCases"},
				Rules: []Rule{
					DifferenceColumns{Minuend: "num_samples", Subtrahend: "num_controls"},
					ExtractFromContext{Question: "What is the number of cases in this GWAS study?", Parse: ParseInt},
				},
			},
			{
				Name:     "num_controls",
				Type:     IntType(),
				Required: true,
				Aliases:  []string{"N_CONTROL", "ncontrol", "TotalControls"},
				Rules: []Rule{
					DifferenceColumns{Minuend: "num_samples", Subtrahend: "num_cases"},
					ExtractFromContext{Question: "What is the number of controls in this GWAS study?", Parse: ParseInt},
				},
			},
			{
				Name:     "genome_build",
				Type:     StringType(),
				Required: true,
				Nullable: true,
				Aliases:  []string{"GenomeBuild"},
				Rules: []Rule{
					ExtractFromContext{Question: "What is the genome build of the GWAS study? Choose one of: GRCh37, GRCh38"},
				},
			},
			{
				Name:     "variant_id",
				Type:     StringType(),
				Required: true,
				Rules: []Rule{
					ConcatColumns{
						Columns:   []string{"chromosome", "position", "effect_allele", "non_effect_allele"},
						Separator: ":",
					},
				},
			},
			{
				Name:     "chromosome",
				Type:     StringType(),
				Required: true,
				Aliases: []string{
					"#CHROM", "0", "CHR", "CHROM", "CHROMOSOME", "Chr", "Chrom",
					"Chromosome", "chr", "chr_name", "chrom", "chromosome", "hm_chr",
				},
			},
			{
				Name:     "position",
				Type:     IntType(),
				Required: true,
				Aliases: []string{
					"3", "BP", "GENPOS", "POS", "Pos", "Position", "base_pair_location",
					"bp", "bpos", "chr_position", "hm_pos", "pos",
				},
			},
			{
				Name:     "non_effect_allele",
				Type:     StringType(),
				Required: true,
				Aliases: []string{
					"4", "A0", "A2", "ALLELE0", "ALLELE2", "ALLELE_0", "ALLELE_2",
					"Allele0", "Allele1", "Allele_0", "Allele_2", "NEA",
					"NON_EFFECT_ALLELE", "Ref", "a0", "a2", "allele0", "allele2",
					"allele_0", "allele_2", "hm_inferOtherAllele", "hm_other_allele",
					"nea", "non_effect_allele", "other_allele", "ref", "reference",
					"reference_allele", "REF",
				},
			},
			{
				Name:     "effect_allele",
				Type:     StringType(),
				Required: true,
				Aliases: []string{
					"5", "A1", "ALLELE1", "ALLELE_1", "Allele2", "Allele_1", "Alt",
					"EA", "a1", "allele1", "allele_1", "alt", "alternative",
					"alternative_allele", "ea", "effect_allele", "hm_effect_allele",
					"ALT",
				},
			},
			{
				Name:     "effect_size",
				Type:     FloatType(),
				Required: true,
				Aliases: []string{
					"B", "BETA", "Beta", "ES", "Effect", "b", "beta", "effect_weight",
					"hm_beta", "EFFECT",
				},
				Rules: []Rule{
					LogColumn{Column: "odds_ratio"},
				},
			},
			{
				Name:     "odds_ratio",
				Type:     FloatType(),
				Required: true,
				Aliases:  []string{"OR", "OddsRatio"},
				Rules: []Rule{
					ExpColumn{Column: "effect_size"},
				},
			},
			{
				Name:     "standard_error",
				Type:     FloatType(),
				Required: true,
				Aliases: []string{
					"LOG(OR)_SE", "SE", "StdErr", "betase", "se", "sebeta",
					"standard_error",
				},
			},
			{
				Name:     "p_value",
				Type:     FloatType(),
				Required: true,
				Aliases: []string{
					"P", "P-value", "P-value_association", "P.value", "PVAL",
					"P_BOLT_LMM", "Pval", "p", "p-value", "p.value", "p_value", "pval",
				},
				Rules: []Rule{
					PowNeg10Column{Column: "negative_log10_p_value"},
				},
			},
			{
				Name:     "negative_log10_p_value",
				Type:     FloatType(),
				Required: true,
				Aliases:  []string{"LOG10P", "LOG10_P", "LP", "MLOG10P", "neg_log_10_p_value"},
				Rules: []Rule{
					NegLog10Column{Column: "p_value"},
				},
			},
			{
				Name:     "effect_allele_frequency",
				Type:     FloatType(),
				Required: true,
				Nullable: true,
				Aliases: []string{
					"A1FREQ", "A1_FREQ", "AF", "AF1", "AF_Allele2", "EAF", "FREQ",
					"FRQ", "Freq", "Freq1", "Frequency", "Frq", "af",
					"allelefrequency_effect", "eaf", "effect_allele_frequency", "freq",
					"frq", "hm_effect_allele_frequency",
				},
			},
		},
	}
}
