package llm

// Prompt templates used by the alignment and normalization services.
// Placeholders are filled with fmt.Sprintf; list-shaped arguments are
// pre-rendered as XML-style fragments by the caller.

// PromptFreeText decides whether a column holds prose or identifiers.
// Args: entries.
const PromptFreeText = `Are the following example entries written in free text or as identifiers?

<entries>
%s
</entries>

Answer either "free text" or "identifiers" and nothing else.`

// PromptEntitySelect re-ranks retrieved ontology candidates for a mention.
// Args: mention, entities.
const PromptEntitySelect = `You are given a mention of a scientific entity and a list of potential entities that could match the mention, from the knowledge base.
Your task is to select the most relevant entity from the list.

<mention>
%s
</mention>

<entities>
%s
</entities>

Answer with the name of the most relevant entity and nothing else.`

// PromptCuriePrefix picks the CURIE prefix to prepend to bare identifiers.
// Args: prefixes, column name, identifiers.
const PromptCuriePrefix = `You are given a list of CURIE prefixes and a list of example identifiers (of a particular type). Your task is to select the appropriate prefix that needs to be added to make them CURIE compliant.
If no prefix is needed, return an empty string.

For example, if the provided identifiers are "ENSG00000274572", "ENSG00000274573", "ENSG00000274574", and the provided prefixes are "ENSEMBL", "NCBIGene" and "HGNC", then the output should be "ENSEMBL".
This is because the identifiers are all in the ENSEMBL format, and the prefix "ENSEMBL" is the one that needs to be added.

<prefixes>
%s
</prefixes>

<example_identifiers name="%s">
%s
</example_identifiers>

Answer with the prefix and nothing else. If no prefix is needed, return an empty string.`

// PromptColumnMatch finds the source column matching a target schema column.
// Args: columns, rows as XML, target column.
const PromptColumnMatch = `Given a dataframe and a target column, return the name of the column in the dataframe that matches the target column. If there is no match or you are unsure, answer with an empty string.
Note that the target column may sometimes request a column with IDs, but the dataframe only has a column with free-text values (e.g. the target column is ` + "`tissue_id`" + ` but the dataframe only has ` + "`tissue`" + `). In this case, you should return the name of the column that contains the free-text values (e.g. ` + "`tissue`" + `).

Here are the column names in the dataframe:

<columns>
%s
</columns>

Here are the first few rows of the dataframe, as XML:
%s

Here is the target column:

<target_column>
%s
</target_column>

Provide just the name of the column that matches the target column and nothing else. If there is no match or you are unsure, answer with an empty string.
Remember that if the target column requests IDs, but the dataframe only has free-text values, you should return the name of the column that contains the free-text values.`

// PromptSchemaIdentify selects the target schema for a dataset.
// Args: schemas, data head.
const PromptSchemaIdentify = `Your task is to identify the target schema of the given dataset. You are provided with the head of a dataset and a list of possible schemas. You need to select the most appropriate schema for the dataset.

Here is the list of available schemas:

<schemas>
%s
</schemas>

Here is the head of the dataset:

<data_head>
%s
</data_head>

Please select the most appropriate target schema from the list above. Provide just the name of the target schema and nothing else. If you are unsure, you can select "Other".`

// PromptPassageAnswer answers a question over retrieved context chunks.
// Args: context, question.
const PromptPassageAnswer = `Given the following context, what is the answer to the question?

Context:

<context>
%s
</context>

Question:

<question>
%s
</question>

Provide a short answer to the question with citations to sources used in the context. The citations should be given as a list of integers, where each integer represents the index of the chunk in the context that the citation is for.
For example, if you used ` + "`<ctx index=0>`" + ` to answer the question, the citation should be ` + "`[[0]]`" + `. If you used ` + "`<ctx index=1>`" + ` and ` + "`<ctx index=2>`" + `, the citation should be ` + "`[[1,2]]`" + `, and so on. The citations should be given after the answer, and nothing should follow the citations.
Do not explain your answer.`
