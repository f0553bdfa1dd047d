package schema

import "github.com/concordbio/concord/internal/domain"

// RNASeq is the target schema for sample-level RNA-seq quantification.
func RNASeq() *Schema {
	return &Schema{
		Name:        "RNA-seq",
		Description: "RNA-seq data. This data type is used to store sample-level RNA-seq data.",
		Columns: []ColumnSpec{
			{
				Name:     "dataset_id",
				Type:     StringType(),
				Required: true,
				Rules:    []Rule{FileStem{}},
			},
			{
				Name:     "subject_id",
				Type:     StringType(),
				Required: true,
				Nullable: true,
			},
			{
				Name:     "sample_id",
				Type:     StringType(),
				Required: true,
				Nullable: true,
			},
			{
				Name:     "value",
				Type:     FloatType(),
				Required: true,
				Nullable: true,
			},
			{
				Name:     "value_type",
				Type:     StringType(),
				Required: true,
				Rules: []Rule{
					ExtractFromContext{Question: "What is the measure used to quantify the RNA-seq data? E.g. RPKM, FPKM, TPM, etc."},
				},
			},
			{
				Name:     "disease_state",
				Type:     Entity(domain.AlgorithmRetrievalAndClassification, domain.EntityDisease),
				Required: true,
				Nullable: true,
				Rules: []Rule{
					ExtractFromContext{Question: "What is the disease state of the RNA-seq sample?"},
				},
			},
			{
				Name:     "tissue",
				Type:     Entity(domain.AlgorithmRetrievalAndClassification, domain.EntityGrossAnatomicalStructure),
				Required: true,
				Nullable: true,
				Rules: []Rule{
					ExtractFromContext{Question: "What tissue are the RNA-seq samples from?"},
				},
			},
			{
				Name:     "cell_type",
				Type:     Entity(domain.AlgorithmRetrievalAndClassification, domain.EntityCell),
				Required: true,
				Nullable: true,
				Rules: []Rule{
					ExtractFromContext{Question: "What cell type are the RNA-seq samples from?"},
				},
			},
		},
	}
}
