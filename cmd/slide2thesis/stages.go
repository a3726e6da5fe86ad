package main

import "github.com/ycwu/slide2thesis/internal/pipeline"

var (
	extractCmd  = stageCommand("extract", "Render pages and extract text from the slide deck", pipeline.StageExtract)
	classifyCmd = stageCommand("classify", "Classify extracted pages into thesis sections", pipeline.StageClassify)
	chaptersCmd = stageCommand("chapters", "Generate thesis chapters from classified sections", pipeline.StageChapters)
	citeCmd     = stageCommand("cite", "Add PubMed citations and build the bibliography", pipeline.StageCite)
	figuresCmd  = stageCommand("figures", "Add figure references and embed page images", pipeline.StageFigures)
	metadataCmd = stageCommand("metadata", "Synthesize thesis metadata (title, abstracts, acknowledgements)", pipeline.StageMetadata)
	compileCmd  = stageCommand("compile", "Compile chapters into the final thesis PDF", pipeline.StageCompile)
)
